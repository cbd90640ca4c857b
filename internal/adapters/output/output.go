// Package output serialises match results for files, terminals and HTTP.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Supported formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatGeoJSON = "geojson"
	FormatCSV     = "csv"
)

// Formats lists every supported format name.
var Formats = []string{FormatJSON, FormatYAML, FormatGeoJSON, FormatCSV}

// DefaultPrecision is the number of decimals kept for distances.
const DefaultPrecision = 2

// Point is the wire form of a coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Record is the wire form of one match.
type Record struct {
	InputPoint   Point   `json:"input_point" yaml:"input_point"`
	ClosestPoint Point   `json:"closest_point" yaml:"closest_point"`
	DistanceKm   float64 `json:"distance_km" yaml:"distance_km"`
}

// Writer serialises a result set.
type Writer interface {
	Write(w io.Writer, results domain.ResultSet) error
}

// New returns the writer for format. Distances are rounded to precision
// decimals; coordinates are written as parsed.
func New(format string, precision int) (Writer, error) {
	if precision < 0 {
		precision = DefaultPrecision
	}
	switch format {
	case FormatJSON, "":
		return jsonWriter{precision: precision}, nil
	case FormatYAML:
		return yamlWriter{precision: precision}, nil
	case FormatGeoJSON:
		return geojsonWriter{precision: precision}, nil
	case FormatCSV:
		return csvWriter{precision: precision}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// Records converts results to their wire form.
func Records(results domain.ResultSet, precision int) []Record {
	out := make([]Record, len(results))
	for i, r := range results {
		out[i] = Record{
			InputPoint:   Point{Latitude: r.Query.Lat, Longitude: r.Query.Lon},
			ClosestPoint: Point{Latitude: r.Match.Lat, Longitude: r.Match.Lon},
			DistanceKm:   Round(r.DistanceKm, precision),
		}
	}
	return out
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

type jsonWriter struct{ precision int }

func (j jsonWriter) Write(w io.Writer, results domain.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Records(results, j.precision))
}

type yamlWriter struct{ precision int }

func (y yamlWriter) Write(w io.Writer, results domain.ResultSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Records(results, y.precision)); err != nil {
		return err
	}
	return enc.Close()
}

type geojsonWriter struct{ precision int }

func (g geojsonWriter) Write(w io.Writer, results domain.ResultSet) error {
	fc := FeatureCollection(results, g.precision)
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// FeatureCollection renders each match as a LineString from the query
// point to its match, followed by the two endpoints as Point features.
func FeatureCollection(results domain.ResultSet, precision int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, r := range results {
		q := orb.Point{r.Query.Lon, r.Query.Lat}
		m := orb.Point{r.Match.Lon, r.Match.Lat}
		dist := Round(r.DistanceKm, precision)

		line := geojson.NewFeature(orb.LineString{q, m})
		line.Properties["index"] = i
		line.Properties["distance_km"] = dist
		fc.Append(line)

		qf := geojson.NewFeature(q)
		qf.Properties["index"] = i
		qf.Properties["role"] = "input_point"
		fc.Append(qf)

		mf := geojson.NewFeature(m)
		mf.Properties["index"] = i
		mf.Properties["role"] = "closest_point"
		fc.Append(mf)
	}
	return fc
}

type csvWriter struct{ precision int }

func (c csvWriter) Write(w io.Writer, results domain.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"input_latitude", "input_longitude", "closest_latitude", "closest_longitude", "distance_km"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write([]string{
			formatCoord(r.Query.Lat),
			formatCoord(r.Query.Lon),
			formatCoord(r.Match.Lat),
			formatCoord(r.Match.Lon),
			strconv.FormatFloat(Round(r.DistanceKm, c.precision), 'f', c.precision, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
