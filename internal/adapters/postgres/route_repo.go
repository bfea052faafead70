package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository with pgx. Points are stored
// as a JSONB array of {lat, lon} objects.
type RouteRepo struct {
	db *DB
}

// validID rejects IDs that cannot name a row, so they read as not found
// instead of a uuid syntax error from Postgres.
func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
	}
	return nil
}

// NewRouteRepo creates a new RouteRepo.
func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const insertRoute = `
	INSERT INTO routes (name, points, loop_closed, distance_meters, point_count)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at`

// Save inserts a new route when ID is empty, otherwise updates it.
func (r *RouteRepo) Save(ctx context.Context, rt *domain.Route) error {
	points := rt.Points
	if points == nil {
		points = []domain.Coordinate{}
	}

	if rt.ID == "" {
		return r.db.Pool.QueryRow(ctx, insertRoute,
			rt.Name, points, rt.LoopClosed, rt.DistanceMeters, len(points),
		).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
	}
	if err := validID(rt.ID); err != nil {
		return err
	}

	err := r.db.Pool.QueryRow(ctx, `
		UPDATE routes
		SET name = $2, points = $3, loop_closed = $4, distance_meters = $5,
		    point_count = $6, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, rt.ID, rt.Name, points, rt.LoopClosed, rt.DistanceMeters, len(points),
	).Scan(&rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, rt.ID)
	}
	return err
}

// SaveBatch inserts many new routes using pgx.Batch.
func (r *RouteRepo) SaveBatch(ctx context.Context, routes []domain.Route) error {
	batch := &pgx.Batch{}
	for _, rt := range routes {
		points := rt.Points
		if points == nil {
			points = []domain.Coordinate{}
		}
		batch.Queue(insertRoute, rt.Name, points, rt.LoopClosed, rt.DistanceMeters, len(points))
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range routes {
		if err := br.QueryRow().Scan(&routes[i].ID, &routes[i].CreatedAt, &routes[i].UpdatedAt); err != nil {
			return fmt.Errorf("batch insert %d: %w", i, err)
		}
	}
	return nil
}

// GetByID returns a route with its points.
func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var rt domain.Route
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, points, loop_closed, distance_meters, point_count, created_at, updated_at
		FROM routes WHERE id = $1
	`, id).Scan(&rt.ID, &rt.Name, &rt.Points, &rt.LoopClosed, &rt.DistanceMeters,
		&rt.PointCount, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// List returns route summaries, most recently updated first, and the total
// number of routes.
func (r *RouteRepo) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM routes`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, loop_closed, distance_meters, point_count, updated_at
		FROM routes
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	routes := make([]domain.RouteSummary, 0, limit)
	for rows.Next() {
		var s domain.RouteSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.LoopClosed, &s.DistanceMeters, &s.PointCount, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		routes = append(routes, s)
	}
	return routes, total, rows.Err()
}

// Delete removes a route.
func (r *RouteRepo) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
	}
	return nil
}
