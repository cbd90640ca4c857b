package geospatial

import (
	"math"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in kilometres between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a just outside [0, 1] for near-identical or
	// near-antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is Haversine over two GeoPoints.
func Distance(p, q domain.GeoPoint) float64 {
	return Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
