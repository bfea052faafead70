package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/ports"
	"github.com/Aoli/gravel-biking/internal/core/route"
)

const routeCacheTTL = 600 // seconds

// RouteService handles persisted routes: saving a session's route, loading
// it back, listing and deleting.
type RouteService struct {
	routes ports.RouteRepository
	cache  ports.CacheService
	events ports.EventPublisher
}

// NewRouteService creates a new RouteService. cache and events may be nil.
func NewRouteService(routes ports.RouteRepository, cache ports.CacheService, events ports.EventPublisher) *RouteService {
	return &RouteService{routes: routes, cache: cache, events: events}
}

func routeCacheKey(id string) string { return "routes:id:" + id }

func routeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled route"
	}
	return name
}

// Save persists m under name. An empty id creates a new route.
func (s *RouteService) Save(ctx context.Context, id, name string, m route.Model) (*domain.Route, error) {
	r := &domain.Route{
		ID:             id,
		Name:           routeName(name),
		Points:         m.Points(),
		LoopClosed:     m.LoopClosed(),
		DistanceMeters: m.TotalDistance(),
		PointCount:     m.Len(),
	}
	if r.Points == nil {
		r.Points = []domain.Coordinate{}
	}
	if err := s.routes.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save route: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, routeCacheKey(r.ID))
	}
	s.publish(ctx, "saved", r.ID, r.Name)
	return r, nil
}

// SaveTrack persists an imported track as a new route.
func (s *RouteService) SaveTrack(ctx context.Context, track domain.Track) (*domain.Route, error) {
	return s.Save(ctx, "", track.Name, route.New(track.Points, track.LoopClosed))
}

// SaveTracks persists several imported tracks as new routes in one batch.
func (s *RouteService) SaveTracks(ctx context.Context, tracks []domain.Track) ([]domain.Route, error) {
	routes := make([]domain.Route, len(tracks))
	for i, t := range tracks {
		m := route.New(t.Points, t.LoopClosed)
		routes[i] = domain.Route{
			Name:           routeName(t.Name),
			Points:         m.Points(),
			LoopClosed:     m.LoopClosed(),
			DistanceMeters: m.TotalDistance(),
			PointCount:     m.Len(),
		}
	}
	if err := s.routes.SaveBatch(ctx, routes); err != nil {
		return nil, fmt.Errorf("save routes: %w", err)
	}
	for _, r := range routes {
		s.publish(ctx, "saved", r.ID, r.Name)
	}
	return routes, nil
}

// GetByID returns a persisted route.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	cacheKey := routeCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var r domain.Route
			if err := json.Unmarshal(data, &r); err == nil {
				return &r, nil
			}
		}
	}

	r, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(r); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, routeCacheTTL)
		}
	}
	return r, nil
}

// List returns a page of route summaries and the total count.
func (s *RouteService) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.routes.List(ctx, limit, offset)
}

// Delete removes a persisted route.
func (s *RouteService) Delete(ctx context.Context, id string) error {
	if err := s.routes.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, routeCacheKey(id))
	}
	s.publish(ctx, "deleted", id, "")
	return nil
}

// HandleRouteEvent drops the cached copy of a route changed by another
// instance.
func (s *RouteService) HandleRouteEvent(ctx context.Context, event *domain.RouteEvent) error {
	if s.cache == nil || event.RouteID == "" {
		return nil
	}
	return s.cache.Delete(ctx, routeCacheKey(event.RouteID))
}

func (s *RouteService) publish(ctx context.Context, kind, id, name string) {
	if s.events == nil {
		return
	}
	ev := &domain.RouteEvent{Kind: kind, RouteID: id, Name: name, Time: time.Now().UTC()}
	if err := s.events.PublishRouteEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish route event failed", "route_id", id, "kind", kind, "error", err)
	}
}
