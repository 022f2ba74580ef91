package publish

import (
	"context"
	"sort"
)

// OnPagePublished is the entry point the host CMS calls when a page is
// published. Asset publishing is best-effort auxiliary behavior: every
// failure is logged with page context and swallowed so the page publish
// itself is never blocked.
func (p *Publisher) OnPagePublished(ctx context.Context, pageID int64) {
	page, err := p.source.PageByID(ctx, pageID)
	if err != nil {
		p.logger.Error(ctx, err, "published page not resolvable, skipping asset build",
			"page_id", pageID)
		return
	}

	p.logger.Info(ctx, "building assets for published page",
		"page_id", pageID, "title", page.Title())
	if err := p.PublishPage(ctx, page); err != nil {
		p.logger.Error(ctx, err, "asset build failed for published page",
			"page_id", pageID)
	}
}

// OnSnippetPublished cascades a shared snippet publish to the pages
// referencing it: each referencing page is rebuilt exactly once,
// in ascending id order. The host CMS supplies the reverse-reference
// lookup; unrelated pages are never touched.
func (p *Publisher) OnSnippetPublished(ctx context.Context, snippetID int64, referencingPageIDs []int64) {
	seen := make(map[int64]bool, len(referencingPageIDs))
	ids := make([]int64, 0, len(referencingPageIDs))
	for _, id := range referencingPageIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pages, err := p.source.PagesByIDs(ctx, ids)
	if err != nil {
		p.logger.Error(ctx, err, "referencing pages not resolvable, skipping cascade",
			"snippet_id", snippetID)
		return
	}

	for _, page := range pages {
		p.logger.Info(ctx, "rebuilding assets for page referencing snippet",
			"page_id", page.ID(), "snippet_id", snippetID)
		if err := p.PublishPage(ctx, page); err != nil {
			p.logger.Error(ctx, err, "cascade rebuild failed",
				"page_id", page.ID(), "snippet_id", snippetID)
		}
	}
}
