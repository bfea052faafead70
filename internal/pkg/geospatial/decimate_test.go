package geospatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

// denseTrack returns n points heading north-east with a jittered 0-9 m step,
// which is roughly what a 1 Hz bike GPS log looks like.
func denseTrack(n int, seed int64) []domain.Coordinate {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]domain.Coordinate, n)
	lat, lon := 59.0, 18.0
	for i := range pts {
		pts[i] = domain.Coordinate{Lat: lat, Lon: lon}
		step := rng.Float64() * 9 / 111320.0
		lat += step
		lon += step * (rng.Float64() - 0.3)
	}
	return pts
}

func TestDecimate_SmallInputsUnchanged(t *testing.T) {
	cases := [][]domain.Coordinate{
		nil,
		{{Lat: 1, Lon: 1}},
		{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1.000001}},
		{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1.000001}, {Lat: 1, Lon: 1.000002}},
	}
	for _, in := range cases {
		out := Decimate(in)
		assert.Len(t, out, len(in))
		for i := range in {
			assert.Equal(t, in[i], out[i])
		}
	}
}

func TestDecimate_DoesNotAliasInput(t *testing.T) {
	in := []domain.Coordinate{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	out := Decimate(in)
	out[0].Lat = 99
	assert.Equal(t, 1.0, in[0].Lat)
}

func TestDecimate_PreservesEndpoints(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		in := denseTrack(2500, seed)
		out := Decimate(in)

		require.NotEmpty(t, out)
		assert.Equal(t, in[0], out[0])
		assert.Equal(t, in[len(in)-1], out[len(out)-1])
	}
}

func TestDecimate_MinimumSpacing(t *testing.T) {
	in := denseTrack(3000, 42)
	out := Decimate(in)

	// The final pair may be shorter because of the forced endpoint.
	for i := 0; i+2 < len(out); i++ {
		assert.GreaterOrEqual(t, Distance(out[i], out[i+1]), MinSpacingMeters, "pair %d", i)
	}
}

func TestDecimate_ReducesDenseTrack(t *testing.T) {
	in := denseTrack(5000, 7)
	out := Decimate(in)
	assert.Less(t, len(out), len(in)/2)
}

func TestDecimate_AllWithinThresholdKeepsFirstAndLast(t *testing.T) {
	in := []domain.Coordinate{
		{Lat: 59, Lon: 18},
		{Lat: 59.00001, Lon: 18},
		{Lat: 59.00002, Lon: 18},
		{Lat: 59.00003, Lon: 18},
	}
	out := Decimate(in)
	assert.Equal(t, []domain.Coordinate{in[0], in[3]}, out)
}

func TestDecimate_LastAlreadyKeptIsNotDuplicated(t *testing.T) {
	in := []domain.Coordinate{
		{Lat: 59, Lon: 18},
		{Lat: 59.001, Lon: 18},
		{Lat: 59.002, Lon: 18},
		{Lat: 59.003, Lon: 18},
	}
	out := Decimate(in)
	assert.Equal(t, in, out)
}

func TestShouldDecimate(t *testing.T) {
	assert.False(t, ShouldDecimate(DecimateThreshold))
	assert.True(t, ShouldDecimate(DecimateThreshold+1))
}
