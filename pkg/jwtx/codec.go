package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLeeway tolerates small clock skew between the issuing and verifying
// hosts when validating exp/nbf.
const DefaultLeeway = 3 * time.Minute

var (
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrInvalidSignature = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrNotYetValid      = errors.New("jwtx: token not yet valid")
)

// Codec signs and verifies tokens with a single symmetric secret (HS256).
// Access and refresh tokens are produced by two Codec instances sharing the
// secret but configured with different TTLs.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string

	leeway time.Duration
	now    func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithLeeway overrides the clock-skew tolerance used during verification.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) { c.leeway = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a codec for tokens signed with secret and living for ttl.
func NewCodec(secret []byte, ttl time.Duration, issuer string, opts ...Option) *Codec {
	c := &Codec{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
		leeway: DefaultLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Sign stamps issuance and expiry onto claims and returns the signed token.
// Any iat/nbf/exp already present on claims are overwritten so a caller can
// never extend a token's life by prefilling them.
func (c *Codec) Sign(claims Claims) (string, error) {
	now := c.now().UTC()

	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	if claims.ID == "" {
		claims.ID = NewJTI()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature and the embedded expiry (with leeway) before
// returning the decoded claims. The claim content is never trusted unless
// both checks pass.
func (c *Codec) Verify(token string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		default:
			return Claims{}, ErrMalformed
		}
	}

	return claims, nil
}
