package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testSecret, time.Hour, "apikit")

	token, err := codec.Sign(Claims{SID: "sid-1", Name: "The User", Email: "the@user.email"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "sid-1", claims.SID)
	require.Equal(t, "The User", claims.Name)
	require.Equal(t, "the@user.email", claims.Email)
	require.Equal(t, "apikit", claims.Issuer)
	require.NotEmpty(t, claims.ID, "jti should be stamped")
}

func TestCodec_Expiry(t *testing.T) {
	t.Parallel()

	const ttl = 10 * time.Minute
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	clock := issued
	codec := NewCodec(testSecret, ttl, "apikit",
		WithClock(func() time.Time { return clock }),
	)

	token, err := codec.Sign(Claims{SID: "sid-1"})
	require.NoError(t, err)

	t.Run("valid just before expiry", func(t *testing.T) {
		clock = issued.Add(ttl - time.Second)
		_, err := codec.Verify(token)
		require.NoError(t, err)
	})

	t.Run("valid within leeway", func(t *testing.T) {
		clock = issued.Add(ttl + DefaultLeeway - time.Second)
		_, err := codec.Verify(token)
		require.NoError(t, err)
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		clock = issued.Add(ttl + DefaultLeeway + time.Second)
		_, err := codec.Verify(token)
		require.ErrorIs(t, err, ErrExpired)
	})
}

func TestCodec_InvalidSignature(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testSecret, time.Hour, "apikit")
	other := NewCodec([]byte("other-secret"), time.Hour, "apikit")

	token, err := codec.Sign(Claims{SID: "sid-1"})
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Malformed(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testSecret, time.Hour, "apikit")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Verify(token)
		require.ErrorIs(t, err, ErrMalformed)
	}
}

func TestCodec_CannotPrefillExpiry(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	codec := NewCodec(testSecret, time.Minute, "apikit",
		WithClock(func() time.Time { return clock }),
	)

	// Claims attempting a year-long expiry get overwritten at sign time.
	claims := NewClaims("sid-1", 365*24*time.Hour, "apikit", issued)
	token, err := codec.Sign(claims)
	require.NoError(t, err)

	clock = issued.Add(time.Minute + DefaultLeeway + time.Second)
	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}
