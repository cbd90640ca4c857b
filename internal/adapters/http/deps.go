package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geomatch/internal/adapters/postgres"
	"github.com/samirrijal/geomatch/internal/adapters/valkey"
	"github.com/samirrijal/geomatch/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Matcher *usecases.MatchService
	Jobs    *usecases.JobService
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache

	// Precision is the number of decimals kept for distances in responses.
	Precision int
	// RequestTimeout bounds each /v1 request. Zero means 15s.
	RequestTimeout time.Duration
	// MaxPoints caps the size of each point list in a match request. Zero
	// means DefaultMaxPoints.
	MaxPoints int
}

// DefaultMaxPoints is the per-list limit applied when none is configured.
const DefaultMaxPoints = 100_000

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) maxPoints() int {
	if d.MaxPoints <= 0 {
		return DefaultMaxPoints
	}
	return d.MaxPoints
}
