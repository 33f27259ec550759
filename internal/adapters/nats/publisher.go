package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for tour events. Per-tour subjects carry the tour id so the
// WebSocket relay can subscribe to one tour at a time.
const (
	subjectTourPrefix = "tour.events."
	subjectBroadcast  = "tour.updates.broadcast"
)

// TourSubject returns the NATS subject carrying events for one tour.
func TourSubject(tourID string) string {
	return subjectTourPrefix + tourID
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the tour-events stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "TOUR_EVENTS",
		Subjects:  []string{subjectTourPrefix + ">"},
		Retention: nats.InterestPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishTourEvent pushes one event onto the tour's subject.
func (p *Publisher) PublishTourEvent(ctx context.Context, tourID string, data []byte) error {
	_, err := p.js.Publish(TourSubject(tourID), data)
	return err
}

// PublishBroadcast sends a plain (non-JetStream) message to all listeners.
func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(subjectBroadcast, data)
}

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
