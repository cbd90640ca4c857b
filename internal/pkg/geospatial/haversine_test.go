package geospatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

func TestHaversine_BerlinParis(t *testing.T) {
	d := Haversine(52.5200, 13.4050, 48.8566, 2.3522)
	assert.InDelta(t, 878, d, 1)
}

func TestHaversine_KnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, delta            float64
	}{
		{"same point", 43.263, -2.935, 43.263, -2.935, 0, 1e-9},
		{"quarter meridian", 0, 0, 90, 0, math.Pi / 2 * EarthRadiusKm, 1e-6},
		{"antipodal", 0, 0, 0, 180, math.Pi * EarthRadiusKm, 1e-6},
		{"poles", 90, 0, -90, 0, math.Pi * EarthRadiusKm, 1e-6},
		{"across antimeridian", 0, 179.5, 0, -179.5, 111.19, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.delta)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestHaversine_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		p := randomPoint(rng)
		q := randomPoint(rng)

		assert.InDelta(t, 0, Distance(p, p), 1e-9)
		assert.InDelta(t, Distance(p, q), Distance(q, p), 1e-9)
		assert.GreaterOrEqual(t, Distance(p, q), 0.0)
		assert.LessOrEqual(t, Distance(p, q), math.Pi*EarthRadiusKm+1e-6)
	}
}

func randomPoint(rng *rand.Rand) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: rng.Float64()*180 - 90,
		Lon: rng.Float64()*360 - 180,
	}
}
