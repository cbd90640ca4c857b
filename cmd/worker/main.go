package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/geomatch/internal/adapters/nats"
	"github.com/samirrijal/geomatch/internal/adapters/postgres"
	"github.com/samirrijal/geomatch/internal/adapters/source"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/core/usecases"
	"github.com/samirrijal/geomatch/internal/pkg/config"
	"github.com/samirrijal/geomatch/internal/pkg/logging"
	"github.com/samirrijal/geomatch/internal/pkg/metrics"
	"github.com/samirrijal/geomatch/internal/workflows"
)

func main() {
	cfg, err := config.Load("geomatch-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Encoding)
	if err != nil {
		slog.Warn("nats unavailable, run events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
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

	observer := usecases.Observers{logging.NewObserver(slog.Default()), metrics.Observer{}}

	csvOpts := source.DefaultCSVOptions
	csvOpts.Comma = cfg.Match.Comma()
	csvOpts.HasHeader = cfg.Match.HasHeader
	csvOpts.LatColumn = cfg.Match.LatColumn
	csvOpts.LonColumn = cfg.Match.LonColumn

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.BatchMatchWorkflow)
	w.RegisterActivity(&workflows.BatchActivities{
		Builder:   usecases.NewPointSetBuilder(observer),
		Matcher:   usecases.NewMatchService(usecases.MatchOptions{Candidates: cfg.Match.Candidates}, observer, nil, nil, nil),
		Runs:      postgres.NewMatchRunRepo(db),
		Publisher: publisher,
		CSV:       csvOpts,
	})

	slog.Info("batch match worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
