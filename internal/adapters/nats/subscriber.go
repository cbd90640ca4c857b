package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and makes sure the geomatch streams exist.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeMatchJobs delivers match jobs to handler. A job the handler fails
// is redelivered up to three times; a job that cannot be decoded is dropped.
func (s *Subscriber) SubscribeMatchJobs(ctx context.Context, handler func(ctx context.Context, job *domain.MatchJob) error) error {
	sub, err := s.js.Subscribe(SubjectMatchJobs, func(msg *nats.Msg) {
		var job domain.MatchJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			slog.Warn("dropping undecodable match job", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &job); err != nil {
			slog.Error("match job failed", "job_id", job.ID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("match-worker"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
