package geospatial

import "github.com/Aoli/gravel-biking/internal/core/domain"

const (
	// DecimateThreshold is the point count above which imported tracks are
	// decimated. Callers check it; Decimate itself always decimates.
	DecimateThreshold = 2000

	// MinSpacingMeters is the minimum distance between consecutive kept
	// points, except for the forced final point.
	MinSpacingMeters = 15.0
)

// ShouldDecimate reports whether a track of n points should go through Decimate.
func ShouldDecimate(n int) bool {
	return n > DecimateThreshold
}

// Decimate thins points so that consecutive kept points are at least
// MinSpacingMeters apart. The first and last points are always kept.
// Inputs of three points or fewer come back unchanged.
//
// This is a linear distance filter, not Douglas-Peucker: it can keep
// redundant points on tight curves and drop a bend shorter than the spacing.
func Decimate(points []domain.Coordinate) []domain.Coordinate {
	if len(points) <= 3 {
		out := make([]domain.Coordinate, len(points))
		copy(out, points)
		return out
	}

	out := make([]domain.Coordinate, 0, len(points)/4+2)
	out = append(out, points[0])
	lastKept := 0

	for i := 1; i < len(points); i++ {
		if Distance(points[lastKept], points[i]) >= MinSpacingMeters {
			out = append(out, points[i])
			lastKept = i
		}
	}

	if lastKept != len(points)-1 {
		out = append(out, points[len(points)-1])
	}
	return out
}
