package localcache

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestThemeRoundTrip(t *testing.T) {
	store := openTestStore(t)

	theme, err := store.Theme("u1")
	require.NoError(t, err)
	assert.Empty(t, theme, "unset theme reads empty")

	require.NoError(t, store.SetTheme("u1", "dark"))
	theme, err = store.Theme("u1")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)

	// per-user isolation
	theme, err = store.Theme("u2")
	require.NoError(t, err)
	assert.Empty(t, theme)
}

func TestCachedTasksLifecycle(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.CachedTasks("u1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	saved := []json.RawMessage{
		json.RawMessage(`{"title":"a"}`),
		json.RawMessage(`{"title":"b"}`),
	}
	require.NoError(t, store.SaveCachedTasks("u1", saved))

	entries, err = store.CachedTasks("u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.JSONEq(t, `{"title":"a"}`, string(entries[0]))

	pending, err := store.PendingImports()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	require.NoError(t, store.ClearCachedTasks("u1"))
	entries, err = store.CachedTasks("u1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	pending, err = store.PendingImports()
	require.NoError(t, err)
	assert.Zero(t, pending)
}
