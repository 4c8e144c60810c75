package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/config"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/handlers"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/httpserver"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/logger"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/pixel"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/subscriber"
)

// main boots the service: config → backends → pixel bus → NATS + HTTP ingestion.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, zl); err != nil {
		zl.Error("service_failed", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
	_ = zl.Sync()
}

// run returns once the HTTP server stops; deferred closers release every backend.
func run(cfg config.Config, zl *zap.Logger) error {
	// Dispatch keeps running while the server drains, so it is not tied to the signal.
	dispatchCtx := context.Background()

	b, err := openBackends(dispatchCtx, cfg, zl)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := pixel.NewBus(zl, pixel.NewMetrics(reg))
	pixel.Register(bus, b.sink)
	zl.Info("pixel_bus_ready", zap.Strings("events", bus.Names()), zap.Strings("sinks", b.names))

	if b.nats != nil && cfg.NATSSubjectPrefix != "" {
		sub := subscriber.New(b.nats, bus, cfg.NATSSubjectPrefix, cfg.NATSQueueGroup, zl)
		if err := sub.Start(dispatchCtx); err != nil {
			return err
		}
		defer func() { _ = sub.Stop() }()
	}

	var stats handlers.RecordCounter
	if b.store != nil {
		stats = b.store
	}

	router := httpserver.NewRouter(cfg, httpserver.Deps{
		Log:      zl,
		Bus:      bus,
		Stats:    stats,
		Checks:   b.checks,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return httpserver.Serve(sigCtx, zl, srv, 10*time.Second)
}
