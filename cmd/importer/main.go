package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/Aoli/gravel-biking/internal/adapters/geojson"
	"github.com/Aoli/gravel-biking/internal/adapters/gpx"
	natsadapter "github.com/Aoli/gravel-biking/internal/adapters/nats"
	"github.com/Aoli/gravel-biking/internal/adapters/postgres"
	"github.com/Aoli/gravel-biking/internal/core/ports"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
	"github.com/Aoli/gravel-biking/internal/pkg/config"
	"github.com/Aoli/gravel-biking/internal/pkg/logging"
	"github.com/Aoli/gravel-biking/internal/workflows"
)

func main() {
	cfg, err := config.Load("gravel-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Saved events let API instances drop stale cache entries.
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ImportWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Imports: usecases.NewImportService(gpx.NewCodec(), geojson.NewCodec()),
		Routes:  usecases.NewRouteService(postgres.NewRouteRepo(db), nil, events),
	})

	slog.Info("importer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
