package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/config"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/httpserver"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/sink"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/store"
)

// errNoBackend stops a production start that would only log records.
var errNoBackend = errors.New("no output backend configured: set DB_URL, REDIS_URL, KAFKA_BROKERS, NATS_URL or SQS_QUEUE_URL")

// backends holds every configured output plus the connections that need closing.
type backends struct {
	sink   sink.Sink
	sinks  []sink.Sink
	names  []string
	store  *store.PostgresStore
	nats   *nats.Conn
	checks map[string]httpserver.Check

	closers []func()
}

func (b *backends) add(name string, s sink.Sink) {
	b.sinks = append(b.sinks, s)
	b.names = append(b.names, name)
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects every backend that has configuration. With none
// configured, records are written to the service log outside production.
func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{checks: map[string]httpserver.Check{}}

	fail := func(err error) (*backends, error) {
		b.close()
		return nil, err
	}

	if cfg.DBURL != "" {
		db, err := store.NewPostgresStore(cfg.DBURL)
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, db.Close)

		// Ensure required tables/indexes exist so `docker compose up --build` is enough.
		if err := db.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		b.store = db
		b.checks["postgres"] = db.Ping
		b.add("postgres", db)
	}

	if cfg.RedisURL != "" {
		client, err := sink.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		rs := sink.NewRedis(client, cfg.RedisListKey)
		b.closers = append(b.closers, func() { _ = rs.Close() })
		b.checks["redis"] = rs.Ping
		b.add("redis", rs)
	}

	if len(cfg.KafkaBrokers) > 0 {
		ks := sink.NewKafka(sink.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			ClientID:     "pixel-analytics-bridge",
			WriteTimeout: cfg.KafkaWriteTimeout,
		})
		b.closers = append(b.closers, func() { _ = ks.Close() })
		b.add("kafka", ks)
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL,
			nats.Name("pixel-analytics-bridge"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warn("nats_disconnected", zap.Error(err))
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
		)
		if err != nil {
			return fail(fmt.Errorf("nats connect: %w", err))
		}
		b.closers = append(b.closers, nc.Close)
		b.nats = nc
		b.checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats status %s", nc.Status())
			}
			return nil
		}
		if cfg.NATSPublishPrefix != "" {
			b.add("nats", sink.NewNATS(nc, cfg.NATSPublishPrefix))
		}
	}

	if cfg.SQSQueueURL != "" {
		qs, err := sink.NewSQSFromEnv(ctx, cfg.SQSQueueURL)
		if err != nil {
			return fail(err)
		}
		b.add("sqs", qs)
	}

	if len(b.sinks) == 0 {
		if cfg.AppEnv == "production" {
			return fail(errNoBackend)
		}
		log.Warn("no_backend_configured", zap.String("fallback", "log"))
		b.add("log", sink.NewLog(log))
	}
	b.sink = sink.Combine(b.sinks...)
	return b, nil
}
