package domain

import "errors"

var (
	// ErrInvalidIndex is returned when a point index is outside the route.
	ErrInvalidIndex = errors.New("invalid point index")

	// ErrInvalidInterval is returned for a non-positive marker interval.
	ErrInvalidInterval = errors.New("invalid marker interval")

	// ErrMalformedTrack is returned by the import boundary for unusable input.
	ErrMalformedTrack = errors.New("malformed track")

	ErrRouteNotFound   = errors.New("route not found")
	ErrSessionNotFound = errors.New("session not found")
)

// ErrUnsupportedFormat is returned for an unknown import/export format.
var ErrUnsupportedFormat = errors.New("unsupported track format")
