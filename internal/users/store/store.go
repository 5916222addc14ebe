// Package store persists users.
//
// Three implementations share one contract: InMemory for development and
// tests, SQL for Postgres and SQLite, and RedisCache, a read-through cache
// that wraps either of them. Every implementation reports missing records as
// sentinel.ErrNotFound and username collisions as sentinel.ErrConflict.
package store

import (
	"context"

	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
)

// Store is the persistence contract shared by the implementations and the
// cache decorator.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id domain.UserID) error
}

var (
	_ Store = (*InMemory)(nil)
	_ Store = (*SQL)(nil)
	_ Store = (*RedisCache)(nil)
)
