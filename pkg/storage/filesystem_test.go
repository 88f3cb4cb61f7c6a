package storage

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenList(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("run-1", "kurs.csv", []byte("id;bezeichnung\n"))
	require.NoError(t, err)
	_, err = store.Save("run-1", "fach.csv", []byte("id\n"))
	require.NoError(t, err)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "id;bezeichnung\n", string(content))

	names, err := store.List("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fach.csv", "kurs.csv"}, names)

	names, err = store.List("missing")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("..", "x.csv", nil)
	require.Error(t, err)
	_, err = store.Save("run-1", "../x.csv", nil)
	require.Error(t, err)
	_, err = store.Open("../../etc/passwd")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	oldRel, err := store.Save("old", "kurs.csv", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("fresh", "kurs.csv", []byte("x"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(oldRel), past, past))
	require.NoError(t, os.Chtimes(store.Path("old"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, deleted)

	names, err := store.List("fresh")
	require.NoError(t, err)
	assert.Equal(t, []string{"kurs.csv"}, names)
	require.NoError(t, store.DeleteRun("fresh"))
}
