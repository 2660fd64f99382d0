package cart

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelsava/S2Market/internal/domain"
)

func TestSQLiteSnapshots(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteSnapshots(ctx, filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	t.Run("unknown user has no lines", func(t *testing.T) {
		lines, err := s.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("save then load preserves order", func(t *testing.T) {
		want := []domain.CartLine{
			{ProductID: "z", Quantity: 1},
			{ProductID: "a", Quantity: 4},
			{ProductID: "m", Quantity: 2},
		}
		require.NoError(t, s.Save(ctx, "u1", want))

		got, err := s.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "u2", []domain.CartLine{{ProductID: "a", Quantity: 1}}))
		require.NoError(t, s.Save(ctx, "u2", []domain.CartLine{{ProductID: "b", Quantity: 3}}))

		got, err := s.Load(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, []domain.CartLine{{ProductID: "b", Quantity: 3}}, got)
	})

	t.Run("users are isolated", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "u3", nil))

		got, err := s.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}
