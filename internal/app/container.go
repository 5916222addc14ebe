package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"restapidemo/internal/platform/config"
	"restapidemo/internal/platform/database"
	"restapidemo/internal/platform/events"
	"restapidemo/internal/platform/metrics"
	"restapidemo/internal/platform/redis"
)

// HealthCheck is one readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Container holds the process-wide dependencies modules are built from.
// DB and Redis are nil when the configuration does not ask for them.
type Container struct {
	Config   config.Server
	Logger   *slog.Logger
	Registry *prometheus.Registry
	DB       *database.DB
	Redis    *redis.Client
	Events   *events.Worker

	publisher events.Publisher

	mu     sync.Mutex
	checks []HealthCheck
}

// NewContainer opens the backing services named by cfg. On error everything
// opened so far is closed again. Error paths return c rather than nil so the
// deferred cleanup still sees what was opened.
func NewContainer(ctx context.Context, cfg config.Server, logger *slog.Logger) (c *Container, err error) {
	c = &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: metrics.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	switch cfg.StoreDriver {
	case config.StorePostgres, config.StoreSQLite:
		c.DB, err = database.Open(ctx, database.Dialect(cfg.StoreDriver), cfg.DatabaseURL, logger)
		if err != nil {
			return c, fmt.Errorf("open database: %w", err)
		}
		c.AddHealthCheck("database", c.DB.Health)
	}

	c.Redis, err = redis.New(ctx, cfg.RedisURL, logger)
	if err != nil {
		return c, fmt.Errorf("connect redis: %w", err)
	}
	if c.Redis != nil {
		c.AddHealthCheck("redis", c.Redis.Health)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return c, fmt.Errorf("connect kafka: %w", err)
		}
		c.publisher = kafka
	} else {
		c.publisher = events.NewLogPublisher(logger)
	}
	c.Events = events.NewWorker(c.publisher, cfg.EventBuffer, logger, events.NewMetrics(c.Registry))

	return c, nil
}

// AddHealthCheck registers a readiness probe.
func (c *Container) AddHealthCheck(name string, check func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, HealthCheck{Name: name, Check: check})
}

// HealthChecks returns a snapshot of the registered probes.
func (c *Container) HealthChecks() []HealthCheck {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HealthCheck(nil), c.checks...)
}

// Close releases the publisher, Redis and the database, in that order.
func (c *Container) Close() error {
	var errs []error
	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
