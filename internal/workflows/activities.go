package workflows

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
)

// Error types the import workflow never retries.
const (
	ErrTypeMalformedTrack    = "MalformedTrack"
	ErrTypeUnsupportedFormat = "UnsupportedFormat"
)

// ImportActivities holds the activity implementations for the import workflow.
type ImportActivities struct {
	Imports *usecases.ImportService
	Routes  *usecases.RouteService
}

// ParseTrack decodes a GPX or GeoJSON file into a plain track.
func (a *ImportActivities) ParseTrack(ctx context.Context, format string, data []byte) (domain.Track, error) {
	codec, err := a.Imports.Codec(format)
	if err != nil {
		return domain.Track{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnsupportedFormat, err)
	}
	track, err := codec.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, domain.ErrMalformedTrack) {
			return domain.Track{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMalformedTrack, err)
		}
		return domain.Track{}, fmt.Errorf("decode %s: %w", format, err)
	}
	activity.GetLogger(ctx).Info("track parsed", "format", format, "points", len(track.Points))
	return track, nil
}

// DecimateTrack thins a large track; small tracks come back unchanged.
func (a *ImportActivities) DecimateTrack(ctx context.Context, track domain.Track) (domain.ImportResult, error) {
	res := usecases.PrepareTrack(track)
	if res.Decimated {
		activity.GetLogger(ctx).Info("track decimated", "original", res.OriginalPoints, "kept", res.KeptPoints)
	}
	return res, nil
}

// SaveRoute stores the track as a new route and returns its ID.
func (a *ImportActivities) SaveRoute(ctx context.Context, track domain.Track) (string, error) {
	r, err := a.Routes.SaveTrack(ctx, track)
	if err != nil {
		return "", fmt.Errorf("save route: %w", err)
	}
	return r.ID, nil
}
