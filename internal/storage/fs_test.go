package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/logging"
)

func newMemBackend() (*FSBackend, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewFSBackend(fs, "public/assets", "/static"), fs
}

func TestFSBackend_SaveReturnsURL(t *testing.T) {
	backend, fs := newMemBackend()

	url, err := backend.Save(context.Background(), "page-assets/css/42-a1b2c3d4.css", []byte(".a{}"))
	require.NoError(t, err)
	assert.Equal(t, "/static/page-assets/css/42-a1b2c3d4.css", url)

	data, err := afero.ReadFile(fs, "public/assets/page-assets/css/42-a1b2c3d4.css")
	require.NoError(t, err)
	assert.Equal(t, ".a{}", string(data))
}

func TestFSBackend_SaveOverwrites(t *testing.T) {
	backend, fs := newMemBackend()
	ctx := context.Background()

	_, err := backend.Save(ctx, "page-assets/css/1-aaaa.css", []byte("old"))
	require.NoError(t, err)
	_, err = backend.Save(ctx, "page-assets/css/1-aaaa.css", []byte("new"))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "public/assets/page-assets/css/1-aaaa.css")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFSBackend_DeleteIdempotent(t *testing.T) {
	backend, _ := newMemBackend()
	ctx := context.Background()

	_, err := backend.Save(ctx, "page-assets/js/1-bbbb.js", []byte("x();"))
	require.NoError(t, err)

	require.NoError(t, backend.Delete(ctx, "page-assets/js/1-bbbb.js"))
	// Second delete of an absent object is not an error.
	require.NoError(t, backend.Delete(ctx, "page-assets/js/1-bbbb.js"))

	exists, err := backend.Exists(ctx, "page-assets/js/1-bbbb.js")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFSBackend_RejectsTraversal(t *testing.T) {
	backend, _ := newMemBackend()
	ctx := context.Background()

	_, err := backend.Save(ctx, "../outside.css", []byte("x"))
	assert.Error(t, err)

	_, err = backend.Save(ctx, "/etc/passwd", []byte("x"))
	assert.Error(t, err)

	_, err = backend.Save(ctx, "", []byte("x"))
	assert.Error(t, err)
}

func TestFSBackend_BaseURLTrailingSlash(t *testing.T) {
	fs := afero.NewMemMapFs()
	backend := NewFSBackend(fs, "assets", "https://cdn.example.com/static/")

	url, err := backend.Save(context.Background(), "page-assets/css/9-cccc.css", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/static/page-assets/css/9-cccc.css", url)
}

func TestRegistry_ResolvesFS(t *testing.T) {
	backend, err := New("fs", config.Default(), logging.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, backend)
}

func TestRegistry_UnknownBackend(t *testing.T) {
	_, err := New("s3", config.Default(), logging.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestPathFromURL(t *testing.T) {
	prefixes := []string{"page-assets/css/", "page-assets/js/"}

	assert.Equal(t, "page-assets/css/1-aaaa.css",
		PathFromURL("/static/page-assets/css/1-aaaa.css", prefixes...))
	assert.Equal(t, "page-assets/js/1-bbbb.js",
		PathFromURL("https://cdn.example.com/static/page-assets/js/1-bbbb.js", prefixes...))
	assert.Equal(t, "page-assets/css/2-dddd.css",
		PathFromURL("page-assets/css/2-dddd.css", prefixes...))
	assert.Equal(t, "", PathFromURL("/static/other/file.css", prefixes...))
}
