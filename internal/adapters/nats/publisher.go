package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

const (
	routeStream = "ROUTE_EVENTS"

	// RouteSubjects matches every persisted-route event.
	RouteSubjects = "routes.>"
	// SessionSubjects matches every session state update.
	SessionSubjects = "sessions.*.updated"
)

// RouteSubject is the JetStream subject for a route event, e.g.
// routes.saved.<id>.
func RouteSubject(ev *domain.RouteEvent) string {
	return "routes." + ev.Kind + "." + ev.RouteID
}

// SessionSubject is the core NATS subject carrying a session's state.
func SessionSubject(sessionID string) string {
	return "sessions." + sessionID + ".updated"
}

// Publisher implements ports.EventPublisher. Route events go through
// JetStream so that instances started later still see recent changes;
// session updates are fire-and-forget core NATS messages.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      routeStream,
		Subjects:  []string{RouteSubjects},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRouteEvent publishes a saved/deleted route event.
func (p *Publisher) PublishRouteEvent(ctx context.Context, ev *domain.RouteEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RouteSubject(ev), data, nats.Context(ctx))
	return err
}

// PublishSessionState broadcasts the state of a session to its watchers.
func (p *Publisher) PublishSessionState(ctx context.Context, st *domain.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return p.conn.Publish(SessionSubject(st.ID), data)
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
