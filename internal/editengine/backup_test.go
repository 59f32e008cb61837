package editengine_test

import (
	"strings"
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupStore_CreateAndList(t *testing.T) {
	fs := newMemFS()
	store := editengine.NewBackupStore("/state/backups", 5, testLogger())

	require.NoError(t, store.Create(fs, "src/a.txt", "version 1"))
	require.NoError(t, store.Create(fs, "src/a.txt", "version 2"))
	require.NoError(t, store.Create(fs, "src/b.txt", "other file"))

	names, err := store.List(fs, "src/a.txt")
	require.NoError(t, err)
	require.Len(t, names, 2)

	// Newest first; path separators are flattened into the filename.
	newest, err := store.Read(fs, names[0])
	require.NoError(t, err)
	assert.Equal(t, "version 2", newest)
	assert.True(t, strings.HasPrefix(names[0], "src__a.txt."))
	assert.True(t, strings.HasSuffix(names[0], ".bak"))

	// Listing one file never leaks another file's backups.
	other, err := store.List(fs, "src/b.txt")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestBackupStore_PrunesBeyondRetention(t *testing.T) {
	fs := newMemFS()
	store := editengine.NewBackupStore("/state/backups", 2, testLogger())

	require.NoError(t, store.Create(fs, "a.txt", "one"))
	require.NoError(t, store.Create(fs, "a.txt", "two"))
	require.NoError(t, store.Create(fs, "a.txt", "three"))

	names, err := store.List(fs, "a.txt")
	require.NoError(t, err)
	require.Len(t, names, 2)

	// The two newest survive.
	newest, err := store.Read(fs, names[0])
	require.NoError(t, err)
	assert.Equal(t, "three", newest)
	oldest, err := store.Read(fs, names[1])
	require.NoError(t, err)
	assert.Equal(t, "two", oldest)
}

func TestBackupStore_ReadRejectsPathTraversal(t *testing.T) {
	fs := newMemFS()
	store := editengine.NewBackupStore("/state/backups", 5, testLogger())

	_, err := store.Read(fs, "../escape.bak")
	assert.Error(t, err)
	_, err = store.Read(fs, "nested/name.bak")
	assert.Error(t, err)
}

func TestBackupStore_RetentionFallsBackToDefault(t *testing.T) {
	store := editengine.NewBackupStore("/state/backups", 0, testLogger())
	assert.Equal(t, "/state/backups", store.Dir())
}
