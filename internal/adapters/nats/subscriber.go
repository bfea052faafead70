package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRouteEvents delivers new route events to handler. Every
// instance gets its own ephemeral consumer, so each one sees every event.
func (s *Subscriber) SubscribeRouteEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.RouteEvent) error) error {
	sub, err := s.js.Subscribe(RouteSubjects, func(msg *nats.Msg) {
		ev, err := DecodeRouteEvent(msg.Data)
		if err != nil {
			slog.Warn("drop malformed route event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// DecodeRouteEvent parses a route event payload.
func DecodeRouteEvent(data []byte) (*domain.RouteEvent, error) {
	var ev domain.RouteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.RouteID == "" {
		return nil, fmt.Errorf("route event without route_id")
	}
	return &ev, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
