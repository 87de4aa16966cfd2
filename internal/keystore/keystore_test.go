// ABOUTME: Tests for the keystore Store implementations
// ABOUTME: Runs the same contract checks against Memory and SQLite

package keystore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories builds one fresh store per implementation for contract tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "keystore.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_SetGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "alpha", "one"))

			got, err := s.Get(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, "one", got)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			_, err := s.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "alpha", "one"))
			require.NoError(t, s.Set(ctx, "alpha", "two"))

			got, err := s.Get(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, "two", got)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "alpha", "one"))
			require.NoError(t, s.Delete(ctx, "alpha"))

			_, err := s.Get(ctx, "alpha")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting again is not an error
			require.NoError(t, s.Delete(ctx, "alpha"))
		})
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "alpha", "persisted"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}
