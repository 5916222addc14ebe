// Package users registers the user management module: the /users REST
// resource backed by the configured store.
package users

import (
	"context"
	"fmt"

	"restapidemo/internal/app"
	"restapidemo/internal/users/handler"
	"restapidemo/internal/users/metrics"
	"restapidemo/internal/users/service"
	"restapidemo/internal/users/store"
)

// Namespace places the module under the primephil scan root.
const Namespace = app.ScanBasePackage + "/restapidemo/users"

func init() {
	app.RegisterModule(Namespace, New)
}

// New builds the module from the container. The store follows the
// configured driver; a Redis connection, when present, adds a read-through
// cache in front of it.
func New(ctx context.Context, c *app.Container) (app.Module, error) {
	var st store.Store
	if c.DB != nil {
		sqlStore := store.NewSQL(c.DB)
		if err := sqlStore.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("users: %w", err)
		}
		st = sqlStore
	} else {
		st = store.NewInMemory()
	}

	if c.Redis != nil {
		st = store.NewRedisCache(st, c.Redis.Client, c.Config.CacheTTL, c.Logger)
	}

	svc := service.New(st,
		service.WithLogger(c.Logger),
		service.WithEvents(c.Events),
		service.WithMetrics(metrics.New(c.Registry)),
	)
	return handler.New(svc, c.Logger), nil
}
