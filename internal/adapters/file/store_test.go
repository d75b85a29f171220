package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/maquette/internal/adapters/file"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements SessionStore
var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSessionStoreContract(t, store)
}

func TestFileStore_DefaultPath(t *testing.T) {
	store := file.New("")
	assert.Equal(t, filepath.Join(".maquette", "sessions"), store.BasePath)
}

func TestFileStore_ListIgnoresGarbage(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("s1", "one")))
	require.NoError(t, store.Save(ctx, domain.NewSession("s2", "two")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.txt"), []byte("junk"), 0o644))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, list)
}

func TestFileStore_OverwriteKeepsLatest(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	sess := domain.NewSession("s1", "add a cube")
	require.NoError(t, store.Save(ctx, sess))

	sess.Status = domain.SessionCompleted
	sess.FinalAnswer = "cube added"
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, loaded.Status)
	assert.Equal(t, "cube added", loaded.FinalAnswer)

	// No temp files may survive a successful save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s1.json", entries[0].Name())
}

func TestFileStore_RejectsEmptyID(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, &domain.Session{}))
	_, err := store.Load(ctx, "")
	assert.Error(t, err)
	assert.Error(t, store.Delete(ctx, ""))
}
