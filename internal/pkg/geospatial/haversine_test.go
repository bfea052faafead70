package geospatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

func TestDistance_KnownPair(t *testing.T) {
	// Stockholm Centralstation to Uppsala Centralstation, ~63 km great-circle.
	stockholm := domain.Coordinate{Lat: 59.3303, Lon: 18.0586}
	uppsala := domain.Coordinate{Lat: 59.8586, Lon: 17.6454}

	d := Distance(stockholm, uppsala)
	assert.InDelta(t, 63179, d, 100)
}

func TestDistance_Symmetric(t *testing.T) {
	a := domain.Coordinate{Lat: 59.0, Lon: 18.0}
	b := domain.Coordinate{Lat: 59.1, Lon: 18.1}

	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestDistance_SamePointIsZero(t *testing.T) {
	a := domain.Coordinate{Lat: -33.8688, Lon: 151.2093}
	assert.Equal(t, 0.0, Distance(a, a))
}

func TestDistance_MonotonicAlongMeridian(t *testing.T) {
	origin := domain.Coordinate{Lat: 10, Lon: 20}
	prev := 0.0
	for i := 1; i <= 20; i++ {
		d := Distance(origin, domain.Coordinate{Lat: 10 + float64(i)*0.01, Lon: 20})
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestDistance_MeridianArcMatchesRadius(t *testing.T) {
	// Along a meridian the haversine reduces to R * dLat.
	dLatDeg := 1.0
	want := earthRadiusKm * 1000 * dLatDeg * math.Pi / 180
	got := Distance(domain.Coordinate{Lat: 0, Lon: 0}, domain.Coordinate{Lat: 1, Lon: 0})
	assert.InDelta(t, want, got, 1e-3)
}

func TestInterpolate(t *testing.T) {
	a := domain.Coordinate{Lat: 0, Lon: 0}
	b := domain.Coordinate{Lat: 10, Lon: -20}

	assert.Equal(t, a, Interpolate(a, b, 0))
	assert.Equal(t, b, Interpolate(a, b, 1))
	assert.Equal(t, domain.Coordinate{Lat: 5, Lon: -10}, Interpolate(a, b, 0.5))
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)

	b, ok := BoundsOf([]domain.Coordinate{
		{Lat: 59.0, Lon: 18.2},
		{Lat: 59.3, Lon: 17.9},
		{Lat: 58.9, Lon: 18.0},
	})
	assert.True(t, ok)
	assert.Equal(t, domain.Bounds{MinLat: 58.9, MinLon: 17.9, MaxLat: 59.3, MaxLon: 18.2}, b)
}
