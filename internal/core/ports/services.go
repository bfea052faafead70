package ports

import (
	"context"
	"io"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

// EventPublisher publishes route and session events to a message broker.
type EventPublisher interface {
	PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error
	PublishSessionState(ctx context.Context, state *domain.SessionState) error
}

// EventSubscriber subscribes to route events from a message broker.
type EventSubscriber interface {
	SubscribeRouteEvents(ctx context.Context, handler func(ctx context.Context, event *domain.RouteEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TrackCodec reads and writes one track file format. Decode validates
// coordinates and reports unusable input as domain.ErrMalformedTrack.
type TrackCodec interface {
	Format() string
	ContentType() string
	Decode(r io.Reader) (domain.Track, error)
	Encode(w io.Writer, track domain.Track) error
}
