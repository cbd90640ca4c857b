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

	natsadapter "github.com/samirrijal/geomatch/internal/adapters/nats"
	"github.com/samirrijal/geomatch/internal/adapters/postgres"
	"github.com/samirrijal/geomatch/internal/adapters/valkey"
	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/core/usecases"
	"github.com/samirrijal/geomatch/internal/pkg/config"
	"github.com/samirrijal/geomatch/internal/pkg/logging"
	"github.com/samirrijal/geomatch/internal/pkg/metrics"
	"github.com/samirrijal/geomatch/internal/pkg/telemetry"
)

// matcher consumes match jobs from NATS, runs them and publishes the
// completed runs. Metrics are served on server.port.
func main() {
	cfg, err := config.Load("geomatch-matcher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer valkeyCache.Close()
		cache = valkeyCache
	}

	// NATS is required here: it is both the job source and the result sink.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Encoding)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	observer := usecases.Observers{
		logging.NewObserver(slog.Default()),
		metrics.Observer{},
		telemetry.Observer{},
	}
	matcher := usecases.NewMatchService(usecases.MatchOptions{
		Candidates: cfg.Match.Candidates,
		CacheTTL:   cfg.Match.CacheTTLDuration(),
	}, observer, cache, postgres.NewMatchRunRepo(db), pub)
	jobs := usecases.NewJobService(usecases.NewPointSetBuilder(observer), matcher)

	err = sub.SubscribeMatchJobs(ctx, func(ctx context.Context, job *domain.MatchJob) error {
		ctx, span := telemetry.Tracer().Start(ctx, "match.job")
		defer span.End()

		res, err := jobs.Run(ctx, job)
		if err != nil {
			metrics.JobsProcessed.WithLabelValues("error").Inc()
			return err
		}
		metrics.JobsProcessed.WithLabelValues("ok").Inc()
		slog.Info("match job done", "job_id", job.ID, "run_id", res.Run.ID,
			"records", len(res.Run.Records), "rejected", len(res.Rejected))
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// Metrics and liveness
	app := fiber.New(fiber.Config{DisableStartupMessage: true, AppName: "Geomatch matcher"})
	app.Get("/metrics", metrics.Handler())
	app.Get("/v1/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	slog.Info("matcher started", "subject", natsadapter.SubjectMatchJobs)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()
	_ = app.ShutdownWithTimeout(5 * time.Second)
}
