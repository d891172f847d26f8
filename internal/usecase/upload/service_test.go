package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/docqa/internal/domain/result"
	"github.com/kailas-cloud/docqa/internal/repository/blob"
)

type memStore struct {
	blobs      map[string][]byte
	failNames  map[string]bool
	ensureErr  error
	ensureCall int
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}, failNames: map[string]bool{}}
}

func (m *memStore) EnsureContainer(context.Context) error {
	m.ensureCall++
	return m.ensureErr
}

func (m *memStore) Upload(_ context.Context, name string, body io.Reader) error {
	if m.failNames[name] {
		return errors.New("network reset")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.blobs[name] = b
	return nil
}

func (m *memStore) List(context.Context) ([]blob.Info, error) {
	out := make([]blob.Info, 0, len(m.blobs))
	for name, b := range m.blobs {
		out = append(out, blob.Info{Name: name, Size: int64(len(b))})
	}
	return out, nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestUploadDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.pdf": "aaa", "b.pdf": "bb", "c.txt": "c"})
	store := newMemStore()
	svc := New(store, nil)

	results, err := svc.UploadDir(context.Background(), dir, "*.pdf")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, store.ensureCall)
	assert.Equal(t, "aaa", string(store.blobs["a.pdf"]))
	assert.NotContains(t, store.blobs, "c.txt")

	listing, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, listing.Blobs, 2)
	assert.Equal(t, int64(5), listing.TotalBytes)
}

func TestUploadDir_FileFailureDoesNotAbort(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.pdf": "a", "b.pdf": "b", "c.pdf": "c"})
	store := newMemStore()
	store.failNames["b.pdf"] = true

	results, err := New(store, nil).UploadDir(context.Background(), dir, "*.pdf")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, result.OK, results[0].Outcome())
	assert.Equal(t, result.Skipped, results[1].Outcome())
	assert.Equal(t, "b.pdf", results[1].ID())
	assert.Equal(t, result.OK, results[2].Outcome())
	assert.Contains(t, store.blobs, "c.pdf")
}

func TestUploadDir_ContainerError(t *testing.T) {
	store := newMemStore()
	store.ensureErr = errors.New("forbidden")

	_, err := New(store, nil).UploadDir(context.Background(), t.TempDir(), "*.pdf")
	require.Error(t, err)
}

func TestUploadFile_Missing(t *testing.T) {
	err := New(newMemStore(), nil).UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
}

func TestUploadFile_UsesBaseName(t *testing.T) {
	dir := writeFiles(t, map[string]string{"Admin Guide.pdf": "x"})
	store := newMemStore()

	require.NoError(t, New(store, nil).UploadFile(context.Background(), filepath.Join(dir, "Admin Guide.pdf")))
	assert.Contains(t, store.blobs, "Admin Guide.pdf")
}

func TestUploadPath(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.pdf": "aaa", "b.pdf": "bb"})

	t.Run("folder", func(t *testing.T) {
		store := newMemStore()
		results, err := New(store, nil).UploadPath(context.Background(), dir, "*.pdf")
		require.NoError(t, err)
		assert.Len(t, results, 2)
		assert.Len(t, store.blobs, 2)
	})

	t.Run("single file", func(t *testing.T) {
		store := newMemStore()
		results, err := New(store, nil).UploadPath(context.Background(), filepath.Join(dir, "b.pdf"), "*.pdf")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, result.OK, results[0].Outcome())
		assert.Equal(t, 1, store.ensureCall)
		assert.Equal(t, "bb", string(store.blobs["b.pdf"]))
	})

	t.Run("single file failure is a skipped result", func(t *testing.T) {
		store := newMemStore()
		store.failNames["a.pdf"] = true
		results, err := New(store, nil).UploadPath(context.Background(), filepath.Join(dir, "a.pdf"), "")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, result.Skipped, results[0].Outcome())
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := New(newMemStore(), nil).UploadPath(context.Background(), filepath.Join(dir, "nope"), "*.pdf")
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
