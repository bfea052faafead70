package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

func snap(m Model) Snapshot { return Snapshot{Model: m} }

func TestHistory_EmptyUndoIsNoop(t *testing.T) {
	h := NewHistory()
	assert.False(t, h.CanUndo())
	_, ok := h.Undo()
	assert.False(t, ok)
}

func TestHistory_LIFO(t *testing.T) {
	h := NewHistory()
	a := New(pts(1), false)
	b := New(pts(2), false)
	h.Save(snap(a))
	h.Save(snap(b))

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, 2, got.Model.Len())
	got, ok = h.Undo()
	require.True(t, ok)
	assert.Equal(t, 1, got.Model.Len())
	assert.False(t, h.CanUndo())
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory()
	for i := 0; i < HistoryCapacity+10; i++ {
		h.Save(snap(New(pts(i), false)))
	}
	assert.Equal(t, HistoryCapacity, h.Len())

	var last Snapshot
	for h.CanUndo() {
		last, _ = h.Undo()
	}
	// Entries 0..9 were evicted.
	assert.Equal(t, 10, last.Model.Len())
}

func TestHistory_SkipsIdenticalTop(t *testing.T) {
	h := NewHistory()
	m := New(pts(3), false)
	h.Save(snap(m))
	h.Save(snap(m))
	assert.Equal(t, 1, h.Len())

	moved, err := m.MovePoint(0, domain.Coordinate{Lat: 1, Lon: 1})
	require.NoError(t, err)
	require.True(t, ApproxEqual(m, moved))
	h.Save(snap(moved))
	assert.Equal(t, 2, h.Len())
}

func TestHistory_IdentityChangeIsItsOwnStep(t *testing.T) {
	h := NewHistory()
	m := New(pts(3), false)
	h.Save(snap(m))
	h.Save(Snapshot{Model: m, RouteID: "route-1", RouteName: "Gravel"})
	assert.Equal(t, 2, h.Len())

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "route-1", got.RouteID)
	assert.Equal(t, "Gravel", got.RouteName)
}

func TestHistory_RebindStopsAtOtherRoute(t *testing.T) {
	h := NewHistory()
	h.Save(Snapshot{Model: New(pts(1), false), RouteID: "old", RouteName: "Old"})
	h.Save(snap(New(pts(2), false)))
	h.Save(snap(New(pts(3), false)))

	h.Rebind(Snapshot{}, Snapshot{RouteID: "new", RouteName: "New"})

	got, _ := h.Undo()
	assert.Equal(t, "new", got.RouteID)
	got, _ = h.Undo()
	assert.Equal(t, "new", got.RouteID)
	assert.Equal(t, "New", got.RouteName)
	got, _ = h.Undo()
	assert.Equal(t, "old", got.RouteID)
}

func TestHistory_RestoresMarkersWithPoints(t *testing.T) {
	h := NewHistory()
	withMarkers, err := New(pts(5), false).WithMarkers(50)
	require.NoError(t, err)
	h.Save(snap(withMarkers))

	live := withMarkers.AddPoint(domain.Coordinate{Lat: 60, Lon: 18})
	require.Empty(t, live.Markers())

	got, ok := h.Undo()
	require.True(t, ok)
	restored := got.Model
	assert.Equal(t, withMarkers.Points(), restored.Points())
	assert.Equal(t, withMarkers.Markers(), restored.Markers())
	assert.Equal(t, 50.0, restored.MarkerInterval())
	assert.Equal(t, withMarkers.Segments(), restored.Segments())
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory()
	h.Save(snap(New(pts(1), false)))
	h.Reset()
	assert.False(t, h.CanUndo())
}

func TestApproxEqual(t *testing.T) {
	assert.True(t, ApproxEqual(New(pts(3), false), New(pts(3), false)))
	assert.False(t, ApproxEqual(New(pts(3), false), New(pts(3), true)))
	assert.False(t, ApproxEqual(New(pts(3), false), New(pts(4), false)))
}
