package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sajera/apikit/internal/store/session"
)

func TestStore(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	s := NewStore()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", "v1"))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v1", got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", "v2"))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v2", got)
	})

	t.Run("del reports count and is idempotent", func(t *testing.T) {
		count, err := s.Del(ctx, "k")
		require.NoError(t, err)
		require.EqualValues(t, 1, count)

		count, err = s.Del(ctx, "k")
		require.NoError(t, err)
		require.EqualValues(t, 0, count)

		_, err = s.Get(ctx, "k")
		require.ErrorIs(t, err, session.ErrNotFound)
	})
}
