package publish

import (
	"context"
	"fmt"

	"github.com/conneroisu/assetpub/internal/content"
	"github.com/conneroisu/assetpub/internal/extract"
)

// RebuildOptions selects the pages a bulk rebuild targets.
type RebuildOptions struct {
	// PageIDs rebuilds an explicit id list (live pages only).
	PageIDs []int64
	// All rebuilds every live page, not just those with existing records.
	All bool
	// DryRun performs scanning, building, and hashing but skips storing
	// and recording, reporting what would change.
	DryRun bool
}

// RebuildReport summarizes a bulk rebuild.
type RebuildReport struct {
	DryRun  bool
	Results []PageResult
	// Rebuilt counts pages processed without error (in a dry run:
	// pages that would have been processed).
	Rebuilt int
	// Failed counts pages whose rebuild errored.
	Failed int
}

// PageResult is one page's outcome within a bulk rebuild.
type PageResult struct {
	PageID int64
	Title  string
	Err    error
	// Plans holds the per-type dry-run outcome; empty for real runs.
	Plans []AssetPlan
}

// Rebuild republishes assets for the selected pages. One page's failure
// never aborts the batch: failures are collected and reported, and the
// overall operation succeeds with summary counts.
func (p *Publisher) Rebuild(ctx context.Context, opts RebuildOptions) (RebuildReport, error) {
	pages, err := p.resolvePages(ctx, opts)
	if err != nil {
		return RebuildReport{}, err
	}

	report := RebuildReport{DryRun: opts.DryRun}
	collector := NewErrorCollector()

	for _, page := range pages {
		result := PageResult{PageID: page.ID(), Title: page.Title()}

		if opts.DryRun {
			result.Plans = p.planPage(ctx, page)
			report.Rebuilt++
		} else if err := p.PublishPage(ctx, page); err != nil {
			result.Err = err
			collector.Add(page.ID(), page.Title(), err)
			report.Failed++
		} else {
			report.Rebuilt++
		}

		report.Results = append(report.Results, result)
	}

	if collector.HasErrors() {
		p.logger.Warn(ctx, nil, "bulk rebuild finished with failures",
			"rebuilt", report.Rebuilt, "failed", collector.Count())
	}
	return report, nil
}

// planPage runs the dry-run pipeline for every asset type: identical
// scanning, building, and hashing to a real run, but no writes.
func (p *Publisher) planPage(ctx context.Context, page content.Page) []AssetPlan {
	fragments := extract.ExtractFromPage(ctx, page, p.logger)
	htmlContent := p.renderIfRequired(ctx, page)

	plans := make([]AssetPlan, 0, len(extract.Types()))
	for _, assetType := range extract.Types() {
		plans = append(plans, p.plan(ctx, page, assetType, fragments[assetType], htmlContent))
	}
	return plans
}

// resolvePages maps RebuildOptions to a page set: explicit ids, all
// live pages, or (default) live pages that already have records.
func (p *Publisher) resolvePages(ctx context.Context, opts RebuildOptions) ([]content.Page, error) {
	if len(opts.PageIDs) > 0 {
		pages, err := p.source.PagesByIDs(ctx, opts.PageIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve pages by id: %w", err)
		}
		return livePages(pages), nil
	}

	if opts.All {
		pages, err := p.source.LivePages(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve live pages: %w", err)
		}
		return pages, nil
	}

	ids, err := p.records.PageIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve pages with records: %w", err)
	}
	pages, err := p.source.PagesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve recorded pages: %w", err)
	}
	return livePages(pages), nil
}

func livePages(pages []content.Page) []content.Page {
	live := make([]content.Page, 0, len(pages))
	for _, page := range pages {
		if page.Live() {
			live = append(live, page)
		}
	}
	return live
}
