package content

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// DirSource is a file-backed Source: a directory of <id>.html files,
// each file one live page. The file body is both the page's single
// content block and its full HTML. It stands in for the CMS when
// assetpub runs as a standalone binary (rebuild CLI, watch loop, tests).
type DirSource struct {
	fs  afero.Fs
	dir string
}

// NewDirSource creates a Source over a directory on the given filesystem.
func NewDirSource(fs afero.Fs, dir string) *DirSource {
	return &DirSource{fs: fs, dir: dir}
}

// PageByID loads the page whose file is <id>.html.
func (s *DirSource) PageByID(ctx context.Context, id int64) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%d.html", id))
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}
	return s.pageFromFile(id, string(data)), nil
}

// PagesByIDs loads the given pages, skipping ids with no backing file.
func (s *DirSource) PagesByIDs(ctx context.Context, ids []int64) ([]Page, error) {
	pages := make([]Page, 0, len(ids))
	for _, id := range ids {
		page, err := s.PageByID(ctx, id)
		if err != nil {
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// LivePages lists every page in the directory, ordered by id.
func (s *DirSource) LivePages(ctx context.Context) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir %s: %w", s.dir, err)
	}

	var ids []int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := PageIDFromFilename(entry.Name())
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return s.PagesByIDs(ctx, ids)
}

func (s *DirSource) pageFromFile(id int64, html string) Page {
	return &StaticPage{
		PageID:     id,
		PageTitle:  fmt.Sprintf("%d.html", id),
		IsLive:     true,
		BlocksHTML: []string{html},
		FullHTML:   html,
	}
}

// PageIDFromFilename maps a content filename back to its page id.
// Returns false for files that are not <id>.html.
func PageIDFromFilename(name string) (int64, bool) {
	if !strings.HasSuffix(name, ".html") {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(name, ".html"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
