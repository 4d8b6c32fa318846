package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, path string) *Store {
	t.Helper()
	st, err := New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	st := newStore(t, filepath.Join(t.TempDir(), "tokens.db"))
	ctx := context.Background()
	pair := models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}

	require.NoError(t, st.Save(ctx, pair))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, pair, *got)
}

func TestStore_Save_ReplacesWholesale(t *testing.T) {
	st := newStore(t, filepath.Join(t.TempDir(), "tokens.db"))
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, st.Save(ctx, models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a2", got.AccessToken)
	require.Equal(t, "r2", got.RefreshToken)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.db")
	ctx := context.Background()

	first, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, first.Close())

	second := newStore(t, path)
	got, err := second.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", got.AccessToken)
}

func TestStore_Clear_Idempotent(t *testing.T) {
	st := newStore(t, filepath.Join(t.TempDir(), "tokens.db"))
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	for i := 0; i < 2; i++ {
		require.NoError(t, st.Clear(ctx))
		_, err := st.Load(ctx)
		require.ErrorIs(t, err, tokenstore.ErrNotFound)
	}
}

func TestStore_PartialRowLoadsAsAbsent(t *testing.T) {
	st := newStore(t, filepath.Join(t.TempDir(), "tokens.db"))
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx, `INSERT INTO token_kv (key, value) VALUES (?, ?)`, tokenstore.KeyRefreshToken, "r-only")
	require.NoError(t, err)

	_, err = st.Load(ctx)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestStore_Save_IncompletePairNotPersisted(t *testing.T) {
	st := newStore(t, filepath.Join(t.TempDir(), "tokens.db"))
	ctx := context.Background()

	err := st.Save(ctx, models.TokenPair{RefreshToken: "r"})
	require.ErrorIs(t, err, tokenstore.ErrIncompletePair)

	_, err = st.Load(ctx)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
}
