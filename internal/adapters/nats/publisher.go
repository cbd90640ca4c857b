package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Subjects used by geomatch.
const (
	SubjectRunCompleted = "geomatch.runs.completed"
	SubjectRuns         = "geomatch.runs.>"
	SubjectMatchJobs    = "geomatch.jobs.match"
	SubjectJobs         = "geomatch.jobs.>"
)

// Streams returns the JetStream streams geomatch relies on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "GEOMATCH_RUNS",
			Subjects:  []string{SubjectRuns},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "GEOMATCH_JOBS",
			Subjects:  []string{SubjectJobs},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	encoding string
}

// NewPublisher connects to NATS, enables JetStream and makes sure the
// geomatch streams exist. encoding is EncodingJSON or EncodingProtobuf.
func NewPublisher(url, encoding string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js, encoding: encoding}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		cfg := cfg
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishRunCompleted announces a finished match run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, run *domain.MatchRun) error {
	data, contentType, err := EncodeRunCompleted(newRunCompletedEvent(run), p.encoding)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(SubjectRunCompleted)
	msg.Header.Set(contentTypeHeader, contentType)
	msg.Header.Set(nats.MsgIdHdr, run.ID)
	msg.Data = data
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// PublishMatchJob queues a match job for the matcher workers.
func (p *Publisher) PublishMatchJob(ctx context.Context, job *domain.MatchJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode match job: %w", err)
	}
	msg := nats.NewMsg(SubjectMatchJobs)
	msg.Header.Set(contentTypeHeader, contentTypeJSON)
	if job.ID != "" {
		msg.Header.Set(nats.MsgIdHdr, job.ID)
	}
	msg.Data = data
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection, e.g. for the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
