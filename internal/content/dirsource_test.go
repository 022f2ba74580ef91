package content

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T) *DirSource {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("content", 0o755))
	require.NoError(t, afero.WriteFile(fs, "content/1.html", []byte("<p>one</p>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "content/7.html", []byte("<p>seven</p>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "content/notes.txt", []byte("ignored"), 0o644))
	return NewDirSource(fs, "content")
}

func TestDirSource_PageByID(t *testing.T) {
	source := newTestSource(t)

	page, err := source.PageByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), page.ID())
	assert.True(t, page.Live())

	blocks, err := page.RenderBlocks(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "<p>seven</p>", blocks[0])

	html, err := page.RenderHTML(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<p>seven</p>", html)
}

func TestDirSource_PageByID_Missing(t *testing.T) {
	source := newTestSource(t)

	_, err := source.PageByID(context.Background(), 99)
	assert.Error(t, err)
}

func TestDirSource_LivePages_OrderedAndFiltered(t *testing.T) {
	source := newTestSource(t)

	pages, err := source.LivePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, int64(1), pages[0].ID())
	assert.Equal(t, int64(7), pages[1].ID())
}

func TestDirSource_PagesByIDs_SkipsMissing(t *testing.T) {
	source := newTestSource(t)

	pages, err := source.PagesByIDs(context.Background(), []int64{1, 5, 7})
	require.NoError(t, err)
	require.Len(t, pages, 2)
}

func TestPageIDFromFilename(t *testing.T) {
	id, ok := PageIDFromFilename("42.html")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = PageIDFromFilename("42.txt")
	assert.False(t, ok)

	_, ok = PageIDFromFilename("index.html")
	assert.False(t, ok)
}

func TestStaticPage_RenderHTML_FallsBackToBlocks(t *testing.T) {
	page := &StaticPage{PageID: 1, BlocksHTML: []string{"<p>a</p>", "<p>b</p>"}}

	html, err := page.RenderHTML(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><p>b</p>", html)
}
