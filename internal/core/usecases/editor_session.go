package usecases

import (
	"fmt"
	"time"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/route"
)

const noSelection = -1

// EditorSession is the entry point for every user edit on a single route.
// Each mutating intent records the current state in the undo history before
// the route changes, and drops any point selection.
//
// An EditorSession is not safe for concurrent use; SessionStore serializes
// access to it.
type EditorSession struct {
	id        string
	model     route.Model
	history   *route.History
	selected  int
	routeID   string
	routeName string
	updatedAt time.Time
}

// NewEditorSession returns an empty session.
func NewEditorSession(id string) *EditorSession {
	return &EditorSession{
		id:        id,
		history:   route.NewHistory(),
		selected:  noSelection,
		updatedAt: time.Now(),
	}
}

// ID returns the session ID.
func (s *EditorSession) ID() string { return s.id }

func (s *EditorSession) snapshot() route.Snapshot {
	return route.Snapshot{Model: s.model, RouteID: s.routeID, RouteName: s.routeName}
}

func (s *EditorSession) apply(next route.Model) {
	s.history.Save(s.snapshot())
	s.model = next
	s.selected = noSelection
	s.updatedAt = time.Now()
}

// AddPoint appends a waypoint.
func (s *EditorSession) AddPoint(c domain.Coordinate) {
	s.apply(s.model.AddPoint(c))
}

// InsertPoint inserts a waypoint before index before (0..len).
func (s *EditorSession) InsertPoint(before int, c domain.Coordinate) error {
	next, err := s.model.InsertPoint(before, c)
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

// InsertMidpoint inserts the midpoint of segment i (the closing segment
// when i == len-1 on a closed loop) between its two endpoints.
func (s *EditorSession) InsertMidpoint(segment int) error {
	n := s.model.Len()
	last := n - 2
	if s.model.LoopClosed() {
		last = n - 1
	}
	if segment < 0 || segment > last {
		return fmt.Errorf("%w: segment %d", domain.ErrInvalidIndex, segment)
	}
	a, _ := s.model.Point(segment)
	b, _ := s.model.Point((segment + 1) % n)
	mid := domain.Coordinate{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
	return s.InsertPoint(segment+1, mid)
}

// MovePoint moves the waypoint at index. It completes any selection.
func (s *EditorSession) MovePoint(index int, c domain.Coordinate) error {
	next, err := s.model.MovePoint(index, c)
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

// DeletePoint removes the waypoint at index.
func (s *EditorSession) DeletePoint(index int) error {
	next, err := s.model.DeletePoint(index)
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

// ToggleLoop opens or closes the loop. It does nothing on routes with
// fewer than three points.
func (s *EditorSession) ToggleLoop() {
	if !s.model.CanToggleLoop() {
		return
	}
	s.apply(s.model.ToggleLoop())
}

// ClearRoute empties the route. The clear itself can be undone.
func (s *EditorSession) ClearRoute() {
	s.apply(s.model.Clear())
	s.routeID = ""
	s.routeName = ""
}

// LoadRoute replaces the route with points.
func (s *EditorSession) LoadRoute(points []domain.Coordinate, loopClosed bool) {
	s.apply(s.model.Load(points, loopClosed))
}

// LoadSaved replaces the route with a persisted one and remembers its ID so
// that a later save updates it.
func (s *EditorSession) LoadSaved(r *domain.Route) {
	s.LoadRoute(r.Points, r.LoopClosed)
	s.routeID = r.ID
	s.routeName = r.Name
}

// LoadTrack replaces the route with an imported track. The session is
// detached from any saved route and takes the track's name.
func (s *EditorSession) LoadTrack(t domain.Track) {
	s.LoadRoute(t.Points, t.LoopClosed)
	s.routeID = ""
	s.routeName = t.Name
}

// GenerateDistanceMarkers places markers every intervalMeters. On an
// invalid interval nothing changes, existing markers included.
func (s *EditorSession) GenerateDistanceMarkers(intervalMeters float64) error {
	next, err := s.model.WithMarkers(intervalMeters)
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

// ClearDistanceMarkers removes all markers.
func (s *EditorSession) ClearDistanceMarkers() {
	s.apply(s.model.WithoutMarkers())
}

// Undo restores the previous state. It reports whether anything was restored.
func (s *EditorSession) Undo() bool {
	s.selected = noSelection
	prev, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.model = prev.Model
	s.routeID = prev.RouteID
	s.routeName = prev.RouteName
	s.updatedAt = time.Now()
	return true
}

// CanUndo reports whether Undo would restore a previous state.
func (s *EditorSession) CanUndo() bool { return s.history.CanUndo() }

// SelectPoint marks the waypoint at index as being edited.
func (s *EditorSession) SelectPoint(index int) error {
	if _, err := s.model.Point(index); err != nil {
		return err
	}
	s.selected = index
	return nil
}

// CancelSelection returns the session to idle without changing the route.
func (s *EditorSession) CancelSelection() { s.selected = noSelection }

// Selection returns the index being edited, if any.
func (s *EditorSession) Selection() (int, bool) {
	if s.selected == noSelection {
		return 0, false
	}
	return s.selected, true
}

// TotalDistanceMeters returns the route length including the closing segment.
func (s *EditorSession) TotalDistanceMeters() float64 { return s.model.TotalDistance() }

// SegmentDistances returns per-segment lengths in meters.
func (s *EditorSession) SegmentDistances() []float64 { return s.model.Segments() }

// CurrentPoints returns the waypoints in route order.
func (s *EditorSession) CurrentPoints() []domain.Coordinate { return s.model.Points() }

// IsLoopClosed reports whether the loop is closed.
func (s *EditorSession) IsLoopClosed() bool { return s.model.LoopClosed() }

// DistanceMarkers returns the current markers.
func (s *EditorSession) DistanceMarkers() []domain.Coordinate { return s.model.Markers() }

// Model returns the current route value.
func (s *EditorSession) Model() route.Model { return s.model }

// RouteID returns the ID of the persisted route this session edits, if any.
func (s *EditorSession) RouteID() string { return s.routeID }

// RouteName returns the name of the persisted route, if any.
func (s *EditorSession) RouteName() string { return s.routeName }

// SetSaved records the persisted identity after a save. Undo steps that
// belonged to the unsaved route are attached to the saved one as well.
func (s *EditorSession) SetSaved(r *domain.Route) {
	s.history.Rebind(s.snapshot(), route.Snapshot{RouteID: r.ID, RouteName: r.Name})
	s.routeID = r.ID
	s.routeName = r.Name
}

// UpdatedAt returns the time of the last change.
func (s *EditorSession) UpdatedAt() time.Time { return s.updatedAt }

// State returns the read model the presentation layer renders.
func (s *EditorSession) State() domain.SessionState {
	st := domain.SessionState{
		ID:             s.id,
		Points:         s.model.Points(),
		LoopClosed:     s.model.LoopClosed(),
		Segments:       s.model.Segments(),
		TotalMeters:    s.model.TotalDistance(),
		Markers:        s.model.Markers(),
		MarkerInterval: s.model.MarkerInterval(),
		CanUndo:        s.history.CanUndo(),
		RouteID:        s.routeID,
		UpdatedAt:      s.updatedAt,
	}
	if st.Points == nil {
		st.Points = []domain.Coordinate{}
	}
	if st.Segments == nil {
		st.Segments = []float64{}
	}
	if st.Markers == nil {
		st.Markers = []domain.Coordinate{}
	}
	if i, ok := s.Selection(); ok {
		st.SelectedIndex = &i
	}
	return st
}
