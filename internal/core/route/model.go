// Package route holds the editable route state, its derived distances,
// distance markers and the undo history over it.
//
// Model is an immutable value: every mutator returns a new Model and leaves
// the receiver untouched, so a Model can be stored in History as-is.
package route

import (
	"fmt"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/pkg/geospatial"
)

// MinLoopPoints is the smallest route on which loop closure means anything.
const MinLoopPoints = 3

// Model is the canonical route state.
type Model struct {
	points         []domain.Coordinate
	loopClosed     bool
	segments       []float64
	markers        []domain.Coordinate
	markerInterval float64
}

// New returns a route over a copy of points. loopClosed is honored only
// when there are at least MinLoopPoints points.
func New(points []domain.Coordinate, loopClosed bool) Model {
	pts := make([]domain.Coordinate, len(points))
	copy(pts, points)
	return build(pts, loopClosed)
}

// build takes ownership of pts; markers are always cleared.
func build(pts []domain.Coordinate, loopClosed bool) Model {
	loop := loopClosed && len(pts) >= MinLoopPoints
	return Model{
		points:     pts,
		loopClosed: loop,
		segments:   segmentLengths(pts, loop),
	}
}

func segmentLengths(pts []domain.Coordinate, loop bool) []float64 {
	if len(pts) < 2 {
		return nil
	}
	n := len(pts) - 1
	if loop {
		n++
	}
	segs := make([]float64, 0, n)
	for i := 0; i+1 < len(pts); i++ {
		segs = append(segs, geospatial.Distance(pts[i], pts[i+1]))
	}
	if loop {
		segs = append(segs, geospatial.Distance(pts[len(pts)-1], pts[0]))
	}
	return segs
}

// Len returns the number of points.
func (m Model) Len() int { return len(m.points) }

// Points returns a copy of the route points.
func (m Model) Points() []domain.Coordinate {
	return cloneCoords(m.points)
}

// Point returns the point at i.
func (m Model) Point(i int) (domain.Coordinate, error) {
	if i < 0 || i >= len(m.points) {
		return domain.Coordinate{}, indexError(i, len(m.points)-1)
	}
	return m.points[i], nil
}

// LoopClosed reports whether the closing segment last->first is part of the route.
func (m Model) LoopClosed() bool { return m.loopClosed }

// Segments returns a copy of the per-segment lengths in meters, including
// the closing segment when the loop is closed.
func (m Model) Segments() []float64 {
	if len(m.segments) == 0 {
		return nil
	}
	out := make([]float64, len(m.segments))
	copy(out, m.segments)
	return out
}

// TotalDistance is the sum of Segments.
func (m Model) TotalDistance() float64 {
	total := 0.0
	for _, s := range m.segments {
		total += s
	}
	return total
}

// CumulativeDistances returns the distance from the start at every point,
// followed by the total when the loop is closed.
func (m Model) CumulativeDistances() []float64 {
	if len(m.points) == 0 {
		return nil
	}
	out := make([]float64, 1, len(m.segments)+1)
	acc := 0.0
	for _, s := range m.segments {
		acc += s
		out = append(out, acc)
	}
	return out
}

// Bounds returns the bounding box of the points.
func (m Model) Bounds() (domain.Bounds, bool) {
	return geospatial.BoundsOf(m.points)
}

// Markers returns a copy of the current distance markers.
func (m Model) Markers() []domain.Coordinate {
	return cloneCoords(m.markers)
}

// MarkerInterval is the interval the current markers were generated with,
// or 0 when there are none.
func (m Model) MarkerInterval() float64 { return m.markerInterval }

// Track converts the model into a boundary track.
func (m Model) Track(name string) domain.Track {
	return domain.Track{Name: name, Points: m.Points(), LoopClosed: m.loopClosed}
}

// AddPoint appends p. Adding a point always reopens a closed loop.
func (m Model) AddPoint(p domain.Coordinate) Model {
	pts := make([]domain.Coordinate, len(m.points), len(m.points)+1)
	copy(pts, m.points)
	return build(append(pts, p), false)
}

// InsertPoint inserts p so that it ends up at index before.
// Valid indexes are 0..Len().
func (m Model) InsertPoint(before int, p domain.Coordinate) (Model, error) {
	if before < 0 || before > len(m.points) {
		return m, indexError(before, len(m.points))
	}
	pts := make([]domain.Coordinate, 0, len(m.points)+1)
	pts = append(pts, m.points[:before]...)
	pts = append(pts, p)
	pts = append(pts, m.points[before:]...)
	return build(pts, m.loopClosed), nil
}

// MovePoint replaces the point at i.
func (m Model) MovePoint(i int, p domain.Coordinate) (Model, error) {
	if i < 0 || i >= len(m.points) {
		return m, indexError(i, len(m.points)-1)
	}
	pts := cloneCoords(m.points)
	pts[i] = p
	return build(pts, m.loopClosed), nil
}

// DeletePoint removes the point at i. The loop opens when fewer than
// MinLoopPoints points remain.
func (m Model) DeletePoint(i int) (Model, error) {
	if i < 0 || i >= len(m.points) {
		return m, indexError(i, len(m.points)-1)
	}
	pts := make([]domain.Coordinate, 0, len(m.points)-1)
	pts = append(pts, m.points[:i]...)
	pts = append(pts, m.points[i+1:]...)
	return build(pts, m.loopClosed), nil
}

// CanToggleLoop reports whether ToggleLoop would change anything.
func (m Model) CanToggleLoop() bool { return len(m.points) >= MinLoopPoints }

// ToggleLoop flips loop closure. With fewer than MinLoopPoints points the
// model is returned unchanged, markers included.
func (m Model) ToggleLoop() Model {
	if !m.CanToggleLoop() {
		return m
	}
	return build(m.points, !m.loopClosed)
}

// Clear returns the empty route.
func (m Model) Clear() Model { return Model{} }

// Load replaces the whole route.
func (m Model) Load(points []domain.Coordinate, loopClosed bool) Model {
	return New(points, loopClosed)
}

// WithMarkers returns the model with markers generated every intervalMeters.
// On error the receiver is returned unchanged.
func (m Model) WithMarkers(intervalMeters float64) (Model, error) {
	markers, err := GenerateMarkers(m.points, m.loopClosed, intervalMeters)
	if err != nil {
		return m, err
	}
	m.markers = markers
	m.markerInterval = intervalMeters
	return m, nil
}

// WithoutMarkers returns the model with markers cleared.
func (m Model) WithoutMarkers() Model {
	m.markers = nil
	m.markerInterval = 0
	return m
}

func indexError(i, hi int) error {
	if hi < 0 {
		return fmt.Errorf("%w: %d (route is empty)", domain.ErrInvalidIndex, i)
	}
	return fmt.Errorf("%w: %d not in [0, %d]", domain.ErrInvalidIndex, i, hi)
}

func cloneCoords(in []domain.Coordinate) []domain.Coordinate {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Coordinate, len(in))
	copy(out, in)
	return out
}
