package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens limit the window of a leaked token;
// the refresh TTL bounds how long a session record stays reachable.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the minimal payload both token flavours carry. The session id is
// the only mandatory field; name/email are optional display fields so a UI can
// render without an extra round trip. The user id is deliberately absent, the
// sid is a keyed one-way derivation of it.
type Claims struct {
	jwt.RegisteredClaims

	// SID pairs the access and refresh tokens with a session record.
	SID string `json:"sid,omitempty"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// NewClaims builds claims for a session, stamped at now with the given ttl.
func NewClaims(sid string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID: sid,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
