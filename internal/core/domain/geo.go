package domain

// Coordinate is a geographic position in decimal degrees (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies inside the WGS 84 degree ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// TrimClosingPoint drops a trailing point equal to the first one and
// reports whether it did. Files mark closed loops that way.
func TrimClosingPoint(points []Coordinate) ([]Coordinate, bool) {
	n := len(points)
	if n < 2 || points[0] != points[n-1] {
		return points, false
	}
	return points[:n-1], true
}

// WithClosingPoint returns points with the first point appended again when
// closed is set. The input is not modified.
func WithClosingPoint(points []Coordinate, closed bool) []Coordinate {
	out := make([]Coordinate, len(points), len(points)+1)
	copy(out, points)
	if closed && len(points) > 0 {
		out = append(out, points[0])
	}
	return out
}
