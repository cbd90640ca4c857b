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

	"github.com/samirrijal/geomatch/internal/adapters/http"
	natsadapter "github.com/samirrijal/geomatch/internal/adapters/nats"
	"github.com/samirrijal/geomatch/internal/adapters/postgres"
	"github.com/samirrijal/geomatch/internal/adapters/valkey"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/core/usecases"
	"github.com/samirrijal/geomatch/internal/pkg/config"
	"github.com/samirrijal/geomatch/internal/pkg/logging"
	"github.com/samirrijal/geomatch/internal/pkg/metrics"
	"github.com/samirrijal/geomatch/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geomatch-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
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

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Encoding)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	observer := usecases.Observers{
		logging.NewObserver(slog.Default()),
		metrics.Observer{},
		telemetry.Observer{},
	}

	matcher := usecases.NewMatchService(usecases.MatchOptions{
		Candidates: cfg.Match.Candidates,
		CacheTTL:   cfg.Match.CacheTTLDuration(),
	}, observer, cache, postgres.NewMatchRunRepo(db), publisher)

	deps := &http.Dependencies{
		Matcher:        matcher,
		Jobs:           usecases.NewJobService(usecases.NewPointSetBuilder(observer), matcher),
		NATS:           natsConn,
		DB:             db,
		Precision:      cfg.Match.Precision,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}
	if valkeyCache != nil {
		deps.Cache = valkeyCache
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Geomatch API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
