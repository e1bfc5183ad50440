// Package user defines the persistence contract for account records.
// Concrete drivers (sqlite, memory) implement Store.
package user

import (
	"context"
	"errors"

	"github.com/sajera/apikit/internal/domain"
)

var (
	ErrNotFound      = errors.New("user: not found")
	ErrAlreadyExists = errors.New("user: already exists")
)

type Store interface {
	// CreateUser inserts a new user (id is provided by the service via
	// ULID). Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during sign-in.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations() error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
