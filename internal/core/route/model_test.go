package route

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/pkg/geospatial"
)

func pts(n int) []domain.Coordinate {
	out := make([]domain.Coordinate, n)
	for i := range out {
		// Alternate east/north so loops have a non-zero closing segment.
		out[i] = domain.Coordinate{Lat: 59.0 + float64(i)*0.001, Lon: 18.0 + float64(i%2)*0.001}
	}
	return out
}

func expectedSegments(n int, loop bool) int {
	if n < 2 {
		return 0
	}
	c := n - 1
	if loop && n >= 3 {
		c++
	}
	return c
}

func TestModel_SegmentCountInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 10} {
		for _, loop := range []bool{false, true} {
			m := New(pts(n), loop)
			assert.Len(t, m.Segments(), expectedSegments(n, loop), "n=%d loop=%v", n, loop)
			assert.Equal(t, loop && n >= 3, m.LoopClosed(), "n=%d loop=%v", n, loop)
		}
	}
}

func TestModel_TotalIsSumOfSegments(t *testing.T) {
	m := New(pts(10), true)
	sum := 0.0
	for _, s := range m.Segments() {
		sum += s
	}
	assert.Equal(t, sum, m.TotalDistance())
}

func TestModel_ClosingSegmentIsLastToFirst(t *testing.T) {
	p := pts(4)
	m := New(p, true)
	segs := m.Segments()
	require.Len(t, segs, 4)
	assert.Equal(t, geospatial.Distance(p[3], p[0]), segs[3])
}

func TestModel_AddPointReopensLoop(t *testing.T) {
	m := New(pts(3), true)
	require.True(t, m.LoopClosed())

	m = m.AddPoint(domain.Coordinate{Lat: 60, Lon: 18})
	assert.False(t, m.LoopClosed())
	assert.Equal(t, 4, m.Len())
	assert.Len(t, m.Segments(), 3)
}

func TestModel_MutatorsDoNotTouchReceiver(t *testing.T) {
	orig := New(pts(3), false)
	before := orig.Points()

	_ = orig.AddPoint(domain.Coordinate{Lat: 1, Lon: 1})
	_, _ = orig.MovePoint(0, domain.Coordinate{Lat: 1, Lon: 1})
	_, _ = orig.DeletePoint(1)
	_, _ = orig.InsertPoint(1, domain.Coordinate{Lat: 1, Lon: 1})
	_ = orig.ToggleLoop()

	assert.Equal(t, before, orig.Points())
	assert.False(t, orig.LoopClosed())
}

func TestModel_PointsReturnsCopy(t *testing.T) {
	m := New(pts(2), false)
	p := m.Points()
	p[0].Lat = 0
	assert.Equal(t, 59.0, m.Points()[0].Lat)
}

func TestModel_InsertPoint(t *testing.T) {
	m := New(pts(2), false)
	mid := domain.Coordinate{Lat: 42, Lon: 42}

	for _, idx := range []int{0, 1, 2} {
		got, err := m.InsertPoint(idx, mid)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
		p, _ := got.Point(idx)
		assert.Equal(t, mid, p)
	}

	for _, idx := range []int{-1, 3} {
		got, err := m.InsertPoint(idx, mid)
		assert.True(t, errors.Is(err, domain.ErrInvalidIndex))
		assert.Equal(t, 2, got.Len())
	}
}

func TestModel_InsertKeepsLoop(t *testing.T) {
	m := New(pts(3), true)
	got, err := m.InsertPoint(1, domain.Coordinate{Lat: 59.0005, Lon: 18.0005})
	require.NoError(t, err)
	assert.True(t, got.LoopClosed())
	assert.Len(t, got.Segments(), 4)
}

func TestModel_MovePoint(t *testing.T) {
	m := New(pts(3), false)
	np := domain.Coordinate{Lat: 10, Lon: 10}

	got, err := m.MovePoint(2, np)
	require.NoError(t, err)
	p, _ := got.Point(2)
	assert.Equal(t, np, p)
	assert.NotEqual(t, m.Segments()[1], got.Segments()[1])

	_, err = m.MovePoint(3, np)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
	_, err = Model{}.MovePoint(0, np)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
}

func TestModel_DeletePointOpensSmallLoop(t *testing.T) {
	m := New(pts(3), true)
	got, err := m.DeletePoint(1)
	require.NoError(t, err)
	assert.False(t, got.LoopClosed())
	assert.Equal(t, 2, got.Len())
	assert.Len(t, got.Segments(), 1)

	big := New(pts(5), true)
	got, err = big.DeletePoint(0)
	require.NoError(t, err)
	assert.True(t, got.LoopClosed())
}

func TestModel_DeletePointOutOfRange(t *testing.T) {
	m := New(pts(2), false)
	_, err := m.DeletePoint(2)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
	_, err = m.DeletePoint(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
}

func TestModel_ToggleLoopBoundary(t *testing.T) {
	two := New(pts(2), false).ToggleLoop()
	assert.False(t, two.LoopClosed())

	three := New(pts(3), false).ToggleLoop()
	assert.True(t, three.LoopClosed())
	assert.False(t, three.ToggleLoop().LoopClosed())
}

func TestModel_StructuralChangesClearMarkers(t *testing.T) {
	base, err := New(pts(5), false).WithMarkers(50)
	require.NoError(t, err)
	require.NotEmpty(t, base.Markers())

	moved, _ := base.MovePoint(0, domain.Coordinate{Lat: 58.99, Lon: 18})
	deleted, _ := base.DeletePoint(0)
	inserted, _ := base.InsertPoint(0, domain.Coordinate{Lat: 58.99, Lon: 18})

	for name, m := range map[string]Model{
		"add":    base.AddPoint(domain.Coordinate{Lat: 60, Lon: 18}),
		"move":   moved,
		"delete": deleted,
		"insert": inserted,
		"toggle": base.ToggleLoop(),
		"load":   base.Load(pts(4), false),
		"clear":  base.Clear(),
	} {
		assert.Empty(t, m.Markers(), name)
		assert.Zero(t, m.MarkerInterval(), name)
	}
}

func TestModel_LoadHonorsLoopOnlyWithEnoughPoints(t *testing.T) {
	assert.False(t, Model{}.Load(pts(2), true).LoopClosed())
	assert.True(t, Model{}.Load(pts(3), true).LoopClosed())
}

func TestModel_CumulativeDistances(t *testing.T) {
	m := New(pts(4), true)
	cum := m.CumulativeDistances()
	require.Len(t, cum, 5)
	assert.Equal(t, 0.0, cum[0])
	assert.InDelta(t, m.TotalDistance(), cum[4], 1e-9)
	assert.Nil(t, Model{}.CumulativeDistances())
}

func TestModel_Bounds(t *testing.T) {
	_, ok := Model{}.Bounds()
	assert.False(t, ok)

	b, ok := New(pts(3), false).Bounds()
	require.True(t, ok)
	assert.Equal(t, 59.0, b.MinLat)
	assert.InDelta(t, 59.002, b.MaxLat, 1e-12)
}
