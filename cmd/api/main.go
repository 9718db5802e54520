package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geofields/internal/adapters/http"
	natsadapter "github.com/samirrijal/geofields/internal/adapters/nats"
	"github.com/samirrijal/geofields/internal/adapters/postgres"
	"github.com/samirrijal/geofields/internal/adapters/valkey"
	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/ports"
	"github.com/samirrijal/geofields/internal/core/usecases"
	"github.com/samirrijal/geofields/internal/pkg/config"
	"github.com/samirrijal/geofields/internal/pkg/logging"
	"github.com/samirrijal/geofields/internal/pkg/metrics"
	"github.com/samirrijal/geofields/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geofields-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	if len(cfg.Resources) == 0 {
		slog.Warn("no resources configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
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
	go reportPoolStats(ctx, db)

	// Optional adapters are handed to the service only when present so the
	// interfaces stay nil rather than holding nil pointers.
	var (
		cache     ports.CacheService
		publisher ports.EventPublisher
	)

	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer valkeyCache.Close()
		cache = valkeyCache
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
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
		defer natsConn.Drain()
	}

	// Resources
	records := postgres.NewRecordRepo(db)
	resources := usecases.NewResourceService(cfg.Resources, records, cache, publisher, cfg.Cache.TTLSeconds)
	if err := resources.Load(ctx); err != nil {
		log.Fatalf("load resources: %v", err)
	}

	// Drop cached responses when another process changes a record.
	if cache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("change subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeChanges(ctx, func(ctx context.Context, e *domain.ChangeEvent) error {
				resources.Invalidate(ctx, e.Resource, e.ID)
				return nil
			})
			if err != nil {
				slog.Warn("subscribe changes failed", "error", err)
			}
		}
	}

	deps := &http.Dependencies{
		Resources:   resources,
		NATS:        natsConn,
		DB:          db,
		Cache:       valkeyCache,
		CacheMaxAge: cfg.Cache.TTLSeconds,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // geometries can be large
		AppName:      "geofields API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions}, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "resources", len(resources.Resources()))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}
