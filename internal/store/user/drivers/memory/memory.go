// Package memory implements the user store on an in-process map. It is
// used by tests and by local development when no database file is wanted.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sajera/apikit/internal/domain"
	"github.com/sajera/apikit/internal/store/user"
)

type Store struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	key := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[key]; ok {
		return user.ErrAlreadyExists
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.byID[u.ID] = u
	s.byEmail[key] = u.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, user.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
