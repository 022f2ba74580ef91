// Package content defines the contracts assetpub uses to reach the host
// CMS: a Page that can render its structured content blocks, and a
// Source that resolves pages by identity. The CMS side of these
// interfaces is out of scope; a file-backed Source is provided so the
// CLI and the watcher can run standalone.
package content

import "context"

// Page is the content-source contract for a single CMS page.
type Page interface {
	// ID returns the stable page identifier.
	ID() int64

	// Title returns a human-readable page title for logs and reports.
	Title() string

	// Live reports whether the page is published and servable.
	Live() bool

	// RenderBlocks renders each structured content block to HTML, in
	// document order. A block that fails to render is the caller's
	// problem to skip; implementations return the blocks they can.
	RenderBlocks(ctx context.Context) ([]string, error)

	// RenderHTML renders the complete page HTML. Only invoked when a
	// configured builder requires full-page content.
	RenderHTML(ctx context.Context) (string, error)
}

// Source resolves pages from the host CMS.
type Source interface {
	PageByID(ctx context.Context, id int64) (Page, error)
	PagesByIDs(ctx context.Context, ids []int64) ([]Page, error)
	LivePages(ctx context.Context) ([]Page, error)
}

// StaticPage is an in-memory Page used by tests and by sources whose
// content is already rendered HTML.
type StaticPage struct {
	PageID     int64
	PageTitle  string
	IsLive     bool
	BlocksHTML []string
	FullHTML   string
}

// ID returns the page identifier.
func (p *StaticPage) ID() int64 { return p.PageID }

// Title returns the page title.
func (p *StaticPage) Title() string { return p.PageTitle }

// Live reports whether the page is published.
func (p *StaticPage) Live() bool { return p.IsLive }

// RenderBlocks returns the pre-rendered block HTML.
func (p *StaticPage) RenderBlocks(ctx context.Context) ([]string, error) {
	return append([]string(nil), p.BlocksHTML...), nil
}

// RenderHTML returns the pre-rendered full page HTML. When FullHTML is
// unset the concatenated blocks stand in for the page body.
func (p *StaticPage) RenderHTML(ctx context.Context) (string, error) {
	if p.FullHTML != "" {
		return p.FullHTML, nil
	}
	html := ""
	for _, block := range p.BlocksHTML {
		html += block
	}
	return html, nil
}
