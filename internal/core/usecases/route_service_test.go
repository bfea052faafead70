package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/route"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
)

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	saveFn    func(ctx context.Context, r *domain.Route) error
	batchFn   func(ctx context.Context, rs []domain.Route) error
	getByIDFn func(ctx context.Context, id string) (*domain.Route, error)
	listFn    func(ctx context.Context, limit, offset int) ([]domain.RouteSummary, int, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockRouteRepo) Save(ctx context.Context, r *domain.Route) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, r)
	}
	if r.ID == "" {
		r.ID = "generated"
	}
	return nil
}

func (m *mockRouteRepo) SaveBatch(ctx context.Context, rs []domain.Route) error {
	if m.batchFn != nil {
		return m.batchFn(ctx, rs)
	}
	return nil
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRouteNotFound
}

func (m *mockRouteRepo) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockRouteRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	routeEvents []*domain.RouteEvent
	states      []*domain.SessionState
	err         error
}

func (m *mockPublisher) PublishRouteEvent(ctx context.Context, ev *domain.RouteEvent) error {
	m.routeEvents = append(m.routeEvents, ev)
	return m.err
}

func (m *mockPublisher) PublishSessionState(ctx context.Context, st *domain.SessionState) error {
	m.states = append(m.states, st)
	return m.err
}

// --- Tests ---

func TestRouteService_Save(t *testing.T) {
	var saved *domain.Route
	repo := &mockRouteRepo{
		saveFn: func(ctx context.Context, r *domain.Route) error {
			r.ID = "r-1"
			saved = r
			return nil
		},
	}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewRouteService(repo, cache, pub)

	m := route.New(triangle(), true)
	r, err := svc.Save(context.Background(), "", "  ", m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "r-1" || saved == nil {
		t.Fatal("expected repository to assign the ID")
	}
	if r.Name != "Untitled route" {
		t.Errorf("expected default name, got %q", r.Name)
	}
	if r.PointCount != 3 || !r.LoopClosed {
		t.Errorf("unexpected route %+v", r)
	}
	if r.DistanceMeters != m.TotalDistance() {
		t.Errorf("expected distance %f, got %f", m.TotalDistance(), r.DistanceMeters)
	}
	if len(pub.routeEvents) != 1 || pub.routeEvents[0].Kind != "saved" {
		t.Errorf("expected one saved event, got %+v", pub.routeEvents)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != "routes:id:r-1" {
		t.Errorf("expected cache invalidation, got %v", cache.deleted)
	}
}

func TestRouteService_SaveError(t *testing.T) {
	repo := &mockRouteRepo{
		saveFn: func(ctx context.Context, r *domain.Route) error { return errors.New("db down") },
	}
	pub := &mockPublisher{}
	svc := usecases.NewRouteService(repo, nil, pub)

	if _, err := svc.Save(context.Background(), "", "x", route.Model{}); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.routeEvents) != 0 {
		t.Error("no event expected on failed save")
	}
}

func TestRouteService_PublishFailureIsNotFatal(t *testing.T) {
	svc := usecases.NewRouteService(&mockRouteRepo{}, nil, &mockPublisher{err: errors.New("nats down")})
	if _, err := svc.Save(context.Background(), "", "x", route.New(triangle(), false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRouteService_GetByID_ReadThrough(t *testing.T) {
	calls := 0
	repo := &mockRouteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
			calls++
			return &domain.Route{ID: id, Name: "Gravel 60", Points: triangle()}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewRouteService(repo, cache, nil)

	for i := 0; i < 2; i++ {
		r, err := svc.GetByID(context.Background(), "r-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Name != "Gravel 60" || len(r.Points) != 3 {
			t.Errorf("unexpected route %+v", r)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repository call, got %d", calls)
	}
}

func TestRouteService_GetByID_CorruptCacheFallsBack(t *testing.T) {
	repo := &mockRouteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
			return &domain.Route{ID: id, Name: "fresh"}, nil
		},
	}
	cache := newMockCache()
	cache.data["routes:id:r-1"] = []byte("{not json")
	svc := usecases.NewRouteService(repo, cache, nil)

	r, err := svc.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name != "fresh" {
		t.Errorf("expected repository value, got %q", r.Name)
	}
	var cached domain.Route
	if err := json.Unmarshal(cache.data["routes:id:r-1"], &cached); err != nil || cached.Name != "fresh" {
		t.Error("expected cache to be repopulated")
	}
}

func TestRouteService_GetByID_NotFound(t *testing.T) {
	svc := usecases.NewRouteService(&mockRouteRepo{}, nil, nil)
	_, err := svc.GetByID(context.Background(), "nope")
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestRouteService_List_ClampLimit(t *testing.T) {
	called := false
	repo := &mockRouteRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]domain.RouteSummary, int, error) {
			called = true
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected offset clamped to 0, got %d", offset)
			}
			return nil, 0, nil
		},
	}
	svc := usecases.NewRouteService(repo, nil, nil)
	_, _, _ = svc.List(context.Background(), 999, -3)
	if !called {
		t.Error("repo was not called")
	}
}

func TestRouteService_Delete(t *testing.T) {
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewRouteService(&mockRouteRepo{}, cache, pub)

	if err := svc.Delete(context.Background(), "r-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.routeEvents) != 1 || pub.routeEvents[0].Kind != "deleted" || pub.routeEvents[0].RouteID != "r-9" {
		t.Errorf("expected deleted event, got %+v", pub.routeEvents)
	}
	if len(cache.deleted) != 1 {
		t.Errorf("expected cache invalidation, got %v", cache.deleted)
	}
}

func TestRouteService_HandleRouteEvent(t *testing.T) {
	cache := newMockCache()
	cache.data["routes:id:r-2"] = []byte("{}")
	svc := usecases.NewRouteService(&mockRouteRepo{}, cache, nil)

	if err := svc.HandleRouteEvent(context.Background(), &domain.RouteEvent{Kind: "saved", RouteID: "r-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.data["routes:id:r-2"]; ok {
		t.Error("expected cached route to be dropped")
	}
}

func TestRouteService_SaveTracks(t *testing.T) {
	repo := &mockRouteRepo{
		batchFn: func(ctx context.Context, rs []domain.Route) error {
			for i := range rs {
				rs[i].ID = fmt.Sprintf("r-%d", i)
			}
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewRouteService(repo, nil, pub)

	routes, err := svc.SaveTracks(context.Background(), []domain.Track{
		{Name: "one", Points: triangle(), LoopClosed: true},
		{Points: triangle()[:2]},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 2 || routes[0].ID != "r-0" || routes[1].ID != "r-1" {
		t.Fatalf("unexpected routes %+v", routes)
	}
	if !routes[0].LoopClosed || routes[0].PointCount != 3 {
		t.Errorf("unexpected first route %+v", routes[0])
	}
	if routes[1].Name != "Untitled route" {
		t.Errorf("expected default name, got %q", routes[1].Name)
	}
	if len(pub.routeEvents) != 2 {
		t.Errorf("expected 2 saved events, got %d", len(pub.routeEvents))
	}
}
