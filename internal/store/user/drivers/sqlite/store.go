// Package sqlite implements the user store on an embedded SQLite
// database via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sajera/apikit/internal/domain"
	"github.com/sajera/apikit/internal/store/user"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	const q = `
		INSERT INTO users (id, email, name, password_hash)
		VALUES (?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash)
	if err != nil && isUniqueViolation(err) {
		return user.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE id = ?;
	`
	return s.scanUser(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = ?;
	`
	return s.scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *Store) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                    domain.User
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return u, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrNotFound
	}
	return err
}

// isUniqueViolation detects a UNIQUE constraint failure. modernc.org/sqlite
// does not export a typed error for this, so we match the message SQLite
// itself produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
