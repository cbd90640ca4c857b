package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MatchRecord pairs one query point with its nearest reference point.
type MatchRecord struct {
	Query      GeoPoint `json:"query"`
	Match      GeoPoint `json:"match"`
	DistanceKm float64  `json:"distance_km"`
}

// ResultSet is the ordered output of a matching pass, one record per query
// point in query order.
type ResultSet []MatchRecord

// MatchRun summarises one matching pass for persistence, caching and events.
type MatchRun struct {
	ID             string        `json:"id"`
	QueryCount     int           `json:"query_count"`
	ReferenceCount int           `json:"reference_count"`
	RejectedRows   int           `json:"rejected_rows"`
	Duration       time.Duration `json:"duration_ns"`
	Records        ResultSet     `json:"records,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Row is one raw coordinate pair as read from an external source.
type Row struct {
	Line int
	Lat  string
	Lon  string
}

// RawPoint is an unparsed latitude/longitude token pair.
type RawPoint struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// UnmarshalJSON accepts each component either as a string ("52°31'N") or
// as a bare JSON number (52.52), which is kept as its literal text.
func (p *RawPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat json.RawMessage `json:"lat"`
		Lon json.RawMessage `json:"lon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if p.Lat, err = coordinateText(raw.Lat); err != nil {
		return fmt.Errorf("lat: %w", err)
	}
	if p.Lon, err = coordinateText(raw.Lon); err != nil {
		return fmt.Errorf("lon: %w", err)
	}
	return nil
}

func coordinateText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// MatchJob is a request to match raw query points against raw reference
// points, delivered through a broker or workflow.
type MatchJob struct {
	ID        string     `json:"id"`
	Query     []RawPoint `json:"query"`
	Reference []RawPoint `json:"reference"`
}

// Rows converts raw points to numbered rows, starting at line 1.
func Rows(points []RawPoint) []Row {
	rows := make([]Row, len(points))
	for i, p := range points {
		rows[i] = Row{Line: i + 1, Lat: p.Lat, Lon: p.Lon}
	}
	return rows
}
