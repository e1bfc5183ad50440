package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sajera/apikit/internal/domain"
	"github.com/sajera/apikit/internal/store/user"
	"github.com/sajera/apikit/pkg/cryptox"
	"github.com/sajera/apikit/pkg/idx"
	"github.com/sajera/apikit/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// sign-in cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrEmailTaken is returned by SignUp on an email conflict.
	ErrEmailTaken = errors.New("email_taken")
)

type UserService struct {
	Store user.Store

	// HashParams tunes the argon2id cost. Zero value falls back to defaults.
	HashParams cryptox.Params
}

// SignUp creates an account with a freshly hashed password.
func (s *UserService) SignUp(ctx context.Context, email, name, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password, s.HashParams)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}

	if err := s.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created", slog.String("user_id", u.ID))
	return u, nil
}

// Authenticate checks an email/password pair. Both failure modes collapse
// into ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.GetUserByID(ctx, userID)
}
