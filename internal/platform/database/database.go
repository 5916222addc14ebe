// Package database opens the SQL connection used by SQL-backed stores.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"restapidemo/internal/platform/retry"
)

// Dialect selects driver specific SQL details.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return ""
	}
}

// Placeholder returns the squirrel bind-variable format for the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// DB bundles a pool with the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects and pings with retry. SQLite is limited to a single
// connection because the driver serializes writers anyway and ":memory:"
// databases are per-connection.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *slog.Logger) (*DB, error) {
	driver := dialect.DriverName()
	if driver == "" {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	err = retry.Connect(ctx, logger, string(dialect), retry.DefaultMaxElapsed, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			if isPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

// isPermanent reports connect failures that retrying cannot fix: rejected
// credentials (class 28) and a missing database or schema (class 3D, 3F).
func isPermanent(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Class() {
	case "28", "3D", "3F":
		return true
	}
	return false
}

// Health pings the pool.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}
