package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

const loopGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>Loop</name><trkseg>
    <trkpt lat="59.0" lon="18.0"></trkpt>
    <trkpt lat="59.01" lon="18.01"></trkpt>
    <trkpt lat="59.0" lon="18.02"></trkpt>
    <trkpt lat="59.0" lon="18.0"></trkpt>
  </trkseg></trk>
</gpx>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_Stats(t *testing.T) {
	path := writeFile(t, "loop.gpx", loopGPX)

	var out bytes.Buffer
	require.NoError(t, run([]string{"stats", path}, &out))

	s := out.String()
	assert.Contains(t, s, "name:      Loop")
	assert.Contains(t, s, "points:    3")
	assert.Contains(t, s, "loop:      true")
	assert.Contains(t, s, "segments:  3")
	assert.Contains(t, s, "bounds:    59.000000,18.000000 .. 59.010000,18.020000")
	assert.NotContains(t, s, "decimate:")
}

func TestRun_StatsProfile(t *testing.T) {
	path := writeFile(t, "loop.gpx", loopGPX)

	var out bytes.Buffer
	require.NoError(t, run([]string{"stats", "-profile", path}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	last := lines[len(lines)-1]
	assert.True(t, strings.HasPrefix(strings.TrimSpace(last), "3  59.000000,18.000000"), "loop profile should end back at the start: %q", last)
}

func TestRun_ConvertToGeoJSON(t *testing.T) {
	path := writeFile(t, "loop.gpx", loopGPX)
	dst := filepath.Join(t.TempDir(), "loop.geojson")

	require.NoError(t, run([]string{"convert", "-o", dst, path}, &bytes.Buffer{}))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"LineString"`)
	assert.Contains(t, string(data), `"loopClosed":true`)
}

func TestRun_ConvertDefaultsToOtherFormat(t *testing.T) {
	path := writeFile(t, "loop.gpx", loopGPX)

	var out bytes.Buffer
	require.NoError(t, run([]string{"convert", path}, &out))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.String()), "{"), "expected GeoJSON on stdout")
}

func TestRun_Decimate(t *testing.T) {
	path := writeFile(t, "loop.gpx", loopGPX)

	var out bytes.Buffer
	require.NoError(t, run([]string{"decimate", path}, &out))
	assert.Equal(t, 4, strings.Count(out.String(), "<trkpt"), "small loop keeps its points plus the closing one")
}

func TestRun_Errors(t *testing.T) {
	assert.ErrorIs(t, run(nil, &bytes.Buffer{}), errUsage)
	assert.ErrorIs(t, run([]string{"bogus"}, &bytes.Buffer{}), errUsage)
	assert.ErrorIs(t, run([]string{"stats"}, &bytes.Buffer{}), errUsage)

	kml := writeFile(t, "ride.kml", "<kml/>")
	assert.ErrorIs(t, run([]string{"stats", kml}, &bytes.Buffer{}), domain.ErrUnsupportedFormat)

	empty := writeFile(t, "empty.gpx", `<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1"></gpx>`)
	err := run([]string{"stats", empty}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, domain.ErrMalformedTrack), "got %v", err)
}
