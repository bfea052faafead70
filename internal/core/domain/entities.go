package domain

import (
	"time"
)

// Track is a plain ordered point list handed across the import/export
// boundary. It carries no derived data.
type Track struct {
	Name       string       `json:"name,omitempty"`
	Points     []Coordinate `json:"points"`
	LoopClosed bool         `json:"loop_closed"`
}

// Route is a named, persisted snapshot of an edited route.
type Route struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Points         []Coordinate `json:"points"`
	LoopClosed     bool         `json:"loop_closed"`
	DistanceMeters float64      `json:"distance_meters"`
	PointCount     int          `json:"point_count"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// RouteSummary is the list view of a Route, without its points.
type RouteSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LoopClosed     bool      `json:"loop_closed"`
	DistanceMeters float64   `json:"distance_meters"`
	PointCount     int       `json:"point_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SessionState is the read model of an editing session, as returned to the
// presentation layer after every intent.
type SessionState struct {
	ID             string       `json:"id"`
	Points         []Coordinate `json:"points"`
	LoopClosed     bool         `json:"loop_closed"`
	Segments       []float64    `json:"segments"`
	TotalMeters    float64      `json:"total_meters"`
	Markers        []Coordinate `json:"markers"`
	MarkerInterval float64      `json:"marker_interval,omitempty"`
	CanUndo        bool         `json:"can_undo"`
	SelectedIndex  *int         `json:"selected_index,omitempty"`
	RouteID        string       `json:"route_id,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// RouteEvent is published whenever a persisted route changes.
type RouteEvent struct {
	Kind    string    `json:"kind"` // "saved" | "deleted"
	RouteID string    `json:"route_id"`
	Name    string    `json:"name,omitempty"`
	Time    time.Time `json:"time"`
}

// ImportResult reports what the import boundary did to an incoming track.
type ImportResult struct {
	Track          Track `json:"track"`
	OriginalPoints int   `json:"original_points"`
	KeptPoints     int   `json:"kept_points"`
	Decimated      bool  `json:"decimated"`
}
