package route

import "github.com/Aoli/gravel-biking/internal/core/domain"

// HistoryCapacity is the number of undo steps kept; older ones are evicted.
const HistoryCapacity = 50

// Snapshot is one undo entry: a route value and the saved route it was
// attached to at that moment. RouteID is empty for a detached route.
type Snapshot struct {
	Model     Model
	RouteID   string
	RouteName string
}

// History is a bounded undo stack of snapshots. Models are immutable, so
// a stored entry can never be changed through the live route.
//
// History is not safe for concurrent use.
type History struct {
	entries []Snapshot
	limit   int
}

// NewHistory returns an empty history holding at most HistoryCapacity entries.
func NewHistory() *History {
	return &History{limit: HistoryCapacity}
}

// Save records s as the state to return to on the next Undo. A state equal
// to the current top entry is not pushed twice.
func (h *History) Save(s Snapshot) {
	if n := len(h.entries); n > 0 && sameSnapshot(h.entries[n-1], s) {
		return
	}
	h.entries = append(h.entries, s)
	if len(h.entries) > h.limit {
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = Snapshot{}
		h.entries = h.entries[:len(h.entries)-1]
	}
}

// CanUndo reports whether Undo would restore anything.
func (h *History) CanUndo() bool { return len(h.entries) > 0 }

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Undo pops the most recent entry. ok is false when the history is empty.
func (h *History) Undo() (s Snapshot, ok bool) {
	n := len(h.entries)
	if n == 0 {
		return Snapshot{}, false
	}
	s = h.entries[n-1]
	h.entries[n-1] = Snapshot{}
	h.entries = h.entries[:n-1]
	return s, true
}

// Rebind moves the most recent entries attached to route from onto route to,
// stopping at the first entry attached elsewhere. A save gives a route its
// identity, and undoing edits made before the save must keep that identity.
func (h *History) Rebind(from, to Snapshot) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := &h.entries[i]
		if e.RouteID != from.RouteID || e.RouteName != from.RouteName {
			return
		}
		e.RouteID = to.RouteID
		e.RouteName = to.RouteName
	}
}

// Reset drops every entry.
func (h *History) Reset() {
	h.entries = nil
}

// ApproxEqual is the cheap comparison used for snapshots: point count,
// loop flag and marker count.
func ApproxEqual(a, b Model) bool {
	return len(a.points) == len(b.points) &&
		a.loopClosed == b.loopClosed &&
		len(a.markers) == len(b.markers)
}

// sameState narrows ApproxEqual down to identical points and interval, so
// that a move of a single point still produces its own undo step.
func sameState(a, b Model) bool {
	if !ApproxEqual(a, b) || a.markerInterval != b.markerInterval {
		return false
	}
	return coordsEqual(a.points, b.points)
}

func sameSnapshot(a, b Snapshot) bool {
	return a.RouteID == b.RouteID && a.RouteName == b.RouteName && sameState(a.Model, b.Model)
}

func coordsEqual(a, b []domain.Coordinate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
