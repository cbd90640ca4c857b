package domain

import "math"

// Valid coordinate ranges in decimal degrees.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// GeoPoint represents a geographic coordinate (WGS 84) in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lon float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports a RangeError when the point lies outside the valid
// latitude/longitude ranges or holds a NaN component.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < MinLatitude || p.Lat > MaxLatitude {
		return &RangeError{Field: "latitude", Value: p.Lat}
	}
	if math.IsNaN(p.Lon) || p.Lon < MinLongitude || p.Lon > MaxLongitude {
		return &RangeError{Field: "longitude", Value: p.Lon}
	}
	return nil
}

// Radians returns the point with both components scaled by π/180.
func (p GeoPoint) Radians() (lat, lon float64) {
	return p.Lat * math.Pi / 180, p.Lon * math.Pi / 180
}

// PointSet is an ordered sequence of points. Order is significant: it is the
// order in which match records are emitted.
type PointSet []GeoPoint

// NewPointSet validates every point and returns them as a PointSet.
// The first invalid point aborts construction.
func NewPointSet(points ...GeoPoint) (PointSet, error) {
	ps := make(PointSet, 0, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

// Len returns the number of points.
func (ps PointSet) Len() int { return len(ps) }

// Empty reports whether the set holds no points.
func (ps PointSet) Empty() bool { return len(ps) == 0 }
