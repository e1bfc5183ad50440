package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sajera/apikit/internal/domain"
	"github.com/sajera/apikit/internal/store/session"
	"github.com/sajera/apikit/pkg/cryptox"
	"github.com/sajera/apikit/pkg/jwtx"
	"github.com/sajera/apikit/pkg/slogx"
)

var (
	// ErrUnauthorized is the single rejection for every token failure. The
	// reason (bad signature, expiry, invalidated session) stays in the log so
	// a caller cannot probe which check failed.
	ErrUnauthorized = errors.New("unauthorized")
)

// SessionService owns the token pair lifecycle. One session per user: the
// session id is a keyed HMAC of the user id, so logging in again converges on
// the same record instead of accumulating rows.
type SessionService struct {
	Store session.Store

	// Access and Refresh share a secret but carry different TTLs.
	Access  *jwtx.Codec
	Refresh *jwtx.Codec

	// SessionSecret keys the user id -> session id derivation.
	SessionSecret []byte
}

// SessionID derives the deterministic session id for a user. The derivation
// is one way, holding a sid never yields the user id back.
func (s *SessionService) SessionID(userID string) string {
	return cryptox.Fingerprint(s.SessionSecret, userID)
}

// Create issues a fresh token pair for the user and stores the session
// record, overwriting any previous one.
func (s *SessionService) Create(ctx context.Context, userID string, payload json.RawMessage) (domain.Session, error) {
	sid := s.SessionID(userID)

	claims := claimsFor(sid, payload)

	access, err := s.Access.Sign(claims)
	if err != nil {
		return domain.Session{}, err
	}
	refresh, err := s.Refresh.Sign(claims)
	if err != nil {
		return domain.Session{}, err
	}

	record := domain.Session{
		SID:          sid,
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		Schema:       domain.AuthSchema,
		Payload:      payload,
	}
	if err := s.put(ctx, record); err != nil {
		return domain.Session{}, err
	}
	return record, nil
}

// FindOrCreate is the idempotent login primitive. When a live session already
// exists for the user it is reused: the payload is refreshed, the access
// token is re-signed only when expired, and the refresh token and sid are
// kept. A missing or fully expired session falls back to Create.
func (s *SessionService) FindOrCreate(ctx context.Context, userID string, payload json.RawMessage) (domain.Session, error) {
	sid := s.SessionID(userID)

	existing, err := s.get(ctx, sid)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return s.Create(ctx, userID, payload)
	case err != nil:
		return domain.Session{}, err
	}

	// A dead refresh token means the session cannot be extended, start over.
	if _, err := s.Refresh.Verify(existing.RefreshToken); err != nil {
		return s.Create(ctx, userID, payload)
	}

	existing.Payload = payload

	if _, err := s.Access.Verify(existing.AccessToken); err != nil {
		access, signErr := s.Access.Sign(claimsFor(sid, payload))
		if signErr != nil {
			return domain.Session{}, signErr
		}
		existing.AccessToken = access
	}

	if err := s.put(ctx, existing); err != nil {
		return domain.Session{}, err
	}
	return existing, nil
}

// RefreshTokens exchanges a refresh token for a session with a live access
// token. The presented token must verify and must match the stored record
// exactly. When the stored access token is still valid the record is returned
// as-is with no store write.
func (s *SessionService) RefreshTokens(ctx context.Context, refreshToken string) (domain.Session, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Refresh.Verify(refreshToken)
	if err != nil || claims.SID == "" {
		l.Info("refresh rejected", slog.Any("err", err))
		return domain.Session{}, ErrUnauthorized
	}

	record, err := s.get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			l.Info("refresh rejected, session invalidated", slog.String("sid", claims.SID))
			return domain.Session{}, ErrUnauthorized
		}
		return domain.Session{}, err
	}

	// A verified token that is not the stored one is a superseded pair.
	if subtle.ConstantTimeCompare([]byte(record.RefreshToken), []byte(refreshToken)) != 1 {
		l.Info("refresh rejected, token superseded", slog.String("sid", claims.SID))
		return domain.Session{}, ErrUnauthorized
	}

	if _, err := s.Access.Verify(record.AccessToken); err == nil {
		return record, nil
	}

	access, err := s.Access.Sign(claimsFor(record.SID, record.Payload))
	if err != nil {
		return domain.Session{}, err
	}
	record.AccessToken = access

	if err := s.put(ctx, record); err != nil {
		return domain.Session{}, err
	}
	return record, nil
}

// VerifyAccess is lightweight verification: signature and expiry only, no
// store round trip. The returned claims identify the session, not the user.
func (s *SessionService) VerifyAccess(_ context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.Access.Verify(accessToken)
	if err != nil || claims.SID == "" {
		return jwtx.Claims{}, ErrUnauthorized
	}
	return claims, nil
}

// ResolveAccess is full verification: the token must verify and the session
// record must still exist and still hold this exact access token, so a
// sign-out or a refresh elsewhere is observed immediately.
func (s *SessionService) ResolveAccess(ctx context.Context, accessToken string) (domain.Session, error) {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return domain.Session{}, ErrUnauthorized
	}

	record, err := s.get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return domain.Session{}, ErrUnauthorized
		}
		return domain.Session{}, err
	}

	if subtle.ConstantTimeCompare([]byte(record.AccessToken), []byte(accessToken)) != 1 {
		return domain.Session{}, ErrUnauthorized
	}
	return record, nil
}

// Invalidate removes the session record. Removing an absent session is not an
// error, sign-out is idempotent.
func (s *SessionService) Invalidate(ctx context.Context, sid string) error {
	_, err := s.Store.Del(ctx, sid)
	return err
}

// InvalidateUser removes the user's session by deriving its sid.
func (s *SessionService) InvalidateUser(ctx context.Context, userID string) error {
	return s.Invalidate(ctx, s.SessionID(userID))
}

func (s *SessionService) get(ctx context.Context, sid string) (domain.Session, error) {
	raw, err := s.Store.Get(ctx, sid)
	if err != nil {
		return domain.Session{}, err
	}
	var record domain.Session
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.Session{}, err
	}
	return record, nil
}

func (s *SessionService) put(ctx context.Context, record domain.Session) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.Store.Set(ctx, record.SID, string(raw))
}

// claimsFor lifts display fields out of the opaque payload so a client can
// render name/email without a round trip. Anything else in the payload stays
// server-side. The user id is never put in claims.
func claimsFor(sid string, payload json.RawMessage) jwtx.Claims {
	claims := jwtx.Claims{SID: sid}
	if len(payload) == 0 {
		return claims
	}

	var display struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &display); err == nil {
		claims.Name = display.Name
		claims.Email = display.Email
	}
	return claims
}
