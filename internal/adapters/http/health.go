package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"uptime":   time.Since(startedAt).String(),
			"version":  "dev",
			"sessions": deps.Sessions.Len(),
		})
	}
}

type readinessCheck struct {
	name     string
	required bool
	probe    func(ctx context.Context) error // nil when not configured
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	checks := []readinessCheck{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		checks[0].probe = deps.DB.Ping
	}
	if deps.NATS != nil {
		nc := deps.NATS
		checks[1].probe = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}
	if deps.Cache != nil {
		checks[2].probe = deps.Cache.Ping
	}
	return checks
}

// ReadyHandler checks the database, NATS and cache. Only the database is
// required; editing works without events and cache, but a configured
// dependency that fails its probe still marks the instance not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		results := make(map[string]string)
		allOK := true
		for _, chk := range readinessChecks(deps) {
			switch {
			case chk.probe == nil:
				results[chk.name] = "not configured"
				if chk.required {
					allOK = false
				}
			default:
				if err := chk.probe(ctx); err != nil {
					results[chk.name] = "error: " + err.Error()
					allOK = false
				} else {
					results[chk.name] = "ok"
				}
			}
		}

		if !allOK {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": results})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}
