package route

import (
	"fmt"
	"math"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/pkg/geospatial"
)

// markerEpsilon keeps float noise in the summed length from producing a
// marker exactly on the route end.
const markerEpsilon = 1e-6

// GenerateMarkers returns a point at every multiple of intervalMeters along
// the route, walking the closing segment too when loopClosed is set and the
// route has at least MinLoopPoints points. No marker is placed at the start
// or at the very end. A non-positive interval is rejected.
func GenerateMarkers(points []domain.Coordinate, loopClosed bool, intervalMeters float64) ([]domain.Coordinate, error) {
	if !(intervalMeters > 0) || math.IsInf(intervalMeters, 1) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInterval, intervalMeters)
	}
	if len(points) < 2 {
		return nil, nil
	}

	loop := loopClosed && len(points) >= MinLoopPoints
	segs := segmentLengths(points, loop)

	total := 0.0
	for _, s := range segs {
		total += s
	}
	end := total - markerEpsilon

	var markers []domain.Coordinate
	k := 1
	target := intervalMeters
	segStart := 0.0

	for i, segLen := range segs {
		if target >= end {
			break
		}
		segEnd := segStart + segLen
		if segLen > 0 {
			from := points[i]
			to := points[(i+1)%len(points)]
			for target <= segEnd && target < end {
				frac := (target - segStart) / segLen
				markers = append(markers, geospatial.Interpolate(from, to, frac))
				k++
				target = float64(k) * intervalMeters
			}
		}
		segStart = segEnd
	}
	return markers, nil
}
