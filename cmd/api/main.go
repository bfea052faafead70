package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Aoli/gravel-biking/internal/adapters/geojson"
	"github.com/Aoli/gravel-biking/internal/adapters/gpx"
	"github.com/Aoli/gravel-biking/internal/adapters/http"
	natsadapter "github.com/Aoli/gravel-biking/internal/adapters/nats"
	"github.com/Aoli/gravel-biking/internal/adapters/postgres"
	"github.com/Aoli/gravel-biking/internal/adapters/valkey"
	"github.com/Aoli/gravel-biking/internal/core/ports"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
	"github.com/Aoli/gravel-biking/internal/pkg/config"
	"github.com/Aoli/gravel-biking/internal/pkg/logging"
	"github.com/Aoli/gravel-biking/internal/pkg/metrics"
	"github.com/Aoli/gravel-biking/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("gravel-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache and events are optional; keep the interfaces nil when absent.
	var routeCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		routeCache = cache
	}

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Use cases
	routeSvc := usecases.NewRouteService(postgres.NewRouteRepo(db), routeCache, events)
	importSvc := usecases.NewImportService(gpx.NewCodec(), geojson.NewCodec())
	sessions := usecases.NewSessionStore(cfg.Editor.SessionTTL)

	// Drop cached routes changed by other instances
	if routeCache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeRouteEvents(ctx, routeSvc.HandleRouteEvent); err != nil {
				slog.Warn("subscribe route events failed", "error", err)
			}
		}
	}

	go sweep(ctx, sessions, db, cfg.Editor.SweepInterval)

	deps := &http.Dependencies{
		Sessions:       sessions,
		Routes:         routeSvc,
		Imports:        importSvc,
		Events:         events,
		MarkerInterval: cfg.Editor.MarkerInterval,
		DB:             db,
		Cache:          cache,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024, // imported tracks can be large
		AppName:      "Gravel Route Editor",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "Content-Disposition, Link",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.RouterConfig{RateLimit: cfg.Server.RateLimit})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// sweep evicts idle sessions and refreshes pool gauges until ctx ends.
func sweep(ctx context.Context, sessions *usecases.SessionStore, db *postgres.DB, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.Sweep(now); n > 0 {
				metrics.SessionsExpired.Add(float64(n))
				slog.Info("idle sessions expired", "count", n)
			}
			metrics.ActiveSessions.Set(float64(sessions.Len()))
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
