package http

import (
	"github.com/nats-io/nats.go"

	"github.com/Aoli/gravel-biking/internal/adapters/postgres"
	"github.com/Aoli/gravel-biking/internal/adapters/valkey"
	"github.com/Aoli/gravel-biking/internal/core/ports"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionStore
	Routes   *usecases.RouteService
	Imports  *usecases.ImportService

	// Events receives session state after every change. Optional.
	Events ports.EventPublisher

	// MarkerInterval is used when a marker request names no interval.
	MarkerInterval float64

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
