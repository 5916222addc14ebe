package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"restapidemo/internal/platform/database"
	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
	"restapidemo/pkg/platform/sentinel"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

const usersTable = "users"

var userColumns = []string{
	"id", "username", "first_name", "last_name", "email", "phone_number", "created_at", "updated_at",
}

// usernameKeyColumn holds models.UsernameKey(username) and carries the unique
// index. It is written but never read back.
const usernameKeyColumn = "username_key"

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// SQL persists users in a relational database. Queries are built with
// squirrel so the same code serves Postgres and SQLite.
type SQL struct {
	db      *sql.DB
	dialect database.Dialect
	builder sq.StatementBuilderType
}

func NewSQL(db *database.DB) *SQL {
	return &SQL{
		db:      db.DB,
		dialect: db.Dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(db.Dialect.Placeholder()),
	}
}

// Migrate creates the users table and its indexes when they are missing.
func (s *SQL) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == database.DialectSQLite {
		schema = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate users schema: %w", err)
	}
	return nil
}

func (s *SQL) Create(ctx context.Context, user *models.User) error {
	query, args, err := s.builder.Insert(usersTable).
		Columns(append(userColumns, usernameKeyColumn)...).
		Values(
			user.ID.String(), user.Username, user.FirstName, user.LastName,
			user.Email, user.PhoneNumber, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
			models.UsernameKey(user.Username),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

func (s *SQL) Update(ctx context.Context, user *models.User) error {
	query, args, err := s.builder.Update(usersTable).
		Set("username", user.Username).
		Set(usernameKeyColumn, models.UsernameKey(user.Username)).
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("email", user.Email).
		Set("phone_number", user.PhoneNumber).
		Set("updated_at", user.UpdatedAt.UTC()).
		Where(sq.Eq{"id": user.ID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %s: %w", user.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("update user: %w", classify(err))
	}
	return requireAffected(res, user.ID)
}

func (s *SQL) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	query, args, err := s.builder.Select(userColumns...).
		From(usersTable).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", classify(err))
	}
	return user, nil
}

func (s *SQL) List(ctx context.Context) ([]*models.User, error) {
	query, args, err := s.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", classify(err))
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", classify(err))
	}
	return users, nil
}

func (s *SQL) Delete(ctx context.Context, id domain.UserID) error {
	query, args, err := s.builder.Delete(usersTable).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", classify(err))
	}
	return requireAffected(res, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		rawID     string
		user      models.User
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(
		&rawID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.PhoneNumber, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored user id %q: %w", rawID, err)
	}
	user.ID = id
	user.CreatedAt = models.Timestamp(createdAt)
	user.UpdatedAt = models.Timestamp(updatedAt)
	return &user, nil
}

func requireAffected(res sql.Result, id domain.UserID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// classify marks connection-level failures with sentinel.ErrUnavailable so
// callers can tell a lost database from a bad query.
func classify(err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08: connection exception, 57P0x: server shutting down or starting up.
		return pqErr.Code.Class() == "08" || strings.HasPrefix(string(pqErr.Code), "57P0")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
