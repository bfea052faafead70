package ports

import (
	"context"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

// RouteRepository persists named route snapshots. Implementations return
// domain.ErrRouteNotFound for unknown IDs.
type RouteRepository interface {
	// Save inserts the route when ID is empty and updates it otherwise.
	// It fills in ID and timestamps on the passed route.
	Save(ctx context.Context, route *domain.Route) error
	SaveBatch(ctx context.Context, routes []domain.Route) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, int, error)
	Delete(ctx context.Context, id string) error
}
