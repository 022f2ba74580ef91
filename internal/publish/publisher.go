// Package publish orchestrates the publish-time asset pipeline:
// scan page content for inline fragments, build them into output blobs,
// hash, store, and record the result per asset type.
//
// The pipeline is fail-open everywhere except storage: a failed build
// degrades to empty output for that asset type and never blocks the
// other type or the page publish itself. A storage write failure is the
// one class allowed to fail the step, since a recorded URL without a
// stored file is worse than no record.
package publish

import (
	"context"
	"fmt"

	"github.com/conneroisu/assetpub/internal/builder"
	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/content"
	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/logging"
	"github.com/conneroisu/assetpub/internal/record"
	"github.com/conneroisu/assetpub/internal/storage"
)

// Publisher coordinates Scanner -> Builder -> hash -> Storage -> Record
// for one page at a time. It is safe for concurrent use across pages;
// each PublishPage call is self-contained.
type Publisher struct {
	cfg      *config.Config
	source   content.Source
	builders map[extract.AssetType]builder.Builder
	storage  storage.Backend
	records  record.Store
	logger   logging.Logger
}

// New wires a Publisher from configuration, resolving the configured
// builders and keeping the injected storage backend and record store.
func New(cfg *config.Config, source content.Source, backend storage.Backend, records record.Store, logger logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("publisher")

	builders := make(map[extract.AssetType]builder.Builder, 2)
	for assetType, name := range map[extract.AssetType]string{
		extract.CSS: cfg.Builders.CSS,
		extract.JS:  cfg.Builders.JS,
	} {
		b, err := builder.New(name, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("configure %s builder: %w", assetType, err)
		}
		builders[assetType] = b
	}

	return &Publisher{
		cfg:      cfg,
		source:   source,
		builders: builders,
		storage:  backend,
		records:  records,
		logger:   logger,
	}, nil
}

// Records exposes the record store backing this publisher (the rewrite
// engine reads the same store).
func (p *Publisher) Records() record.Store { return p.records }

// PublishPage runs the full pipeline for one page. CSS and JS are
// processed independently: a degraded build of one type never aborts
// the other.
func (p *Publisher) PublishPage(ctx context.Context, page content.Page) error {
	fragments := extract.ExtractFromPage(ctx, page, p.logger)

	htmlContent := p.renderIfRequired(ctx, page)

	var firstErr error
	for _, assetType := range extract.Types() {
		if err := p.processType(ctx, page, assetType, fragments[assetType], htmlContent); err != nil {
			p.logger.Error(ctx, err, "asset publish failed",
				"page_id", page.ID(), "asset_type", string(assetType))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PublishPageByID resolves pageID against the content source and runs
// the pipeline. Pages that are no longer live have their stored assets
// and records cleared instead of rebuilt.
func (p *Publisher) PublishPageByID(ctx context.Context, pageID int64) error {
	page, err := p.source.PageByID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("resolve page %d: %w", pageID, err)
	}
	if !page.Live() {
		var firstErr error
		for _, assetType := range extract.Types() {
			if err := p.clearAsset(ctx, pageID, assetType); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return p.PublishPage(ctx, page)
}

// renderIfRequired renders the full page HTML only when at least one
// configured builder needs it. A render failure degrades to empty HTML.
func (p *Publisher) renderIfRequired(ctx context.Context, page content.Page) string {
	required := false
	for _, b := range p.builders {
		if b.RequiresHTMLContent() {
			required = true
			break
		}
	}
	if !required {
		return ""
	}

	htmlContent, err := page.RenderHTML(ctx)
	if err != nil {
		p.logger.Warn(ctx, err, "full page render failed, building from fragments only",
			"page_id", page.ID())
		return ""
	}
	return htmlContent
}

// processType builds, stores, and records one asset type for a page.
func (p *Publisher) processType(ctx context.Context, page content.Page, assetType extract.AssetType, fragments []extract.Fragment, htmlContent string) error {
	plan := p.plan(ctx, page, assetType, fragments, htmlContent)

	if plan.Empty {
		return p.clearAsset(ctx, page.ID(), assetType)
	}

	output := p.optimize(ctx, assetType, plan.Output)

	// Drop the previous object when the content-addressed path moved.
	if existing, ok, err := p.records.Get(ctx, page.ID(), assetType); err == nil && ok {
		oldPath := storage.PathFromURL(existing.URL, p.cfg.Prefixes.CSS, p.cfg.Prefixes.JS)
		if oldPath != "" && oldPath != plan.Path {
			if err := p.storage.Delete(ctx, oldPath); err != nil {
				p.logger.Warn(ctx, err, "stale asset cleanup failed",
					"page_id", page.ID(), "path", oldPath)
			}
		}
	}

	url, err := p.storage.Save(ctx, plan.Path, []byte(output))
	if err != nil {
		return fmt.Errorf("store %s asset for page %d: %w", assetType, page.ID(), err)
	}

	if err := p.records.Upsert(ctx, record.PublishedAsset{
		PageID:        page.ID(),
		AssetType:     assetType,
		URL:           url,
		ContentHashes: plan.Hashes,
		Loading:       plan.Loading,
	}); err != nil {
		return fmt.Errorf("record %s asset for page %d: %w", assetType, page.ID(), err)
	}

	p.logger.Info(ctx, "published asset",
		"page_id", page.ID(), "asset_type", string(assetType), "url", url)
	return nil
}

// AssetPlan is the outcome of scanning+building+hashing one asset type,
// before any write happens. Dry runs stop here.
type AssetPlan struct {
	Type   extract.AssetType
	Output string
	Hashes []string
	Path   string
	// Loading is the script loading strategy the reference will carry.
	Loading string
	Empty   bool
}

// plan runs the pure part of the pipeline: build and hash. Builder
// errors degrade to empty output.
func (p *Publisher) plan(ctx context.Context, page content.Page, assetType extract.AssetType, fragments []extract.Fragment, htmlContent string) AssetPlan {
	b := p.builders[assetType]
	texts := extract.Texts(fragments)

	buildHTML := ""
	if b.RequiresHTMLContent() {
		buildHTML = htmlContent
	}

	output, err := b.Build(ctx, buildHTML, texts, assetType)
	if err != nil {
		p.logger.Warn(ctx, err, "build failed, treating output as empty",
			"page_id", page.ID(), "asset_type", string(assetType), "builder", b.Name())
		output = ""
	}

	if output == "" {
		return AssetPlan{Type: assetType, Empty: true}
	}

	// The filename digest covers the pre-optimization source text so
	// unchanged content republishes to the identical path. Builders
	// that synthesize output without fragments (Tailwind scanning bare
	// markup) fall back to hashing the built output.
	digestSource := builder.Join(texts)
	if digestSource == "" {
		digestSource = output
	}

	loading := sharedLoading(fragments)
	loadingSuffix := ""
	if loading != extract.LoadingBlocking {
		loadingSuffix = "-" + loading
	}

	return AssetPlan{
		Type:    assetType,
		Output:  output,
		Hashes:  extract.Hashes(fragments),
		Loading: loading,
		Path: fmt.Sprintf("%s%d-%s%s.%s",
			p.prefix(assetType), page.ID(),
			extract.ShortHash(digestSource, p.cfg.HashLength), loadingSuffix, assetType.Ext()),
	}
}

// sharedLoading returns the loading strategy the published reference
// should carry: the fragments' strategy when they all agree, otherwise
// blocking, which is the only timing safe for every script in the file.
func sharedLoading(fragments []extract.Fragment) string {
	if len(fragments) == 0 {
		return extract.LoadingBlocking
	}
	loading := fragments[0].Loading
	for _, fragment := range fragments[1:] {
		if fragment.Loading != loading {
			return extract.LoadingBlocking
		}
	}
	return loading
}

// clearAsset removes the stored object and record for an asset type
// whose extracted content is now empty. Consistent across rebuilds:
// empty content always means no record.
func (p *Publisher) clearAsset(ctx context.Context, pageID int64, assetType extract.AssetType) error {
	existing, ok, err := p.records.Get(ctx, pageID, assetType)
	if err != nil {
		return fmt.Errorf("look up %s record for page %d: %w", assetType, pageID, err)
	}
	if !ok {
		return nil
	}

	if path := storage.PathFromURL(existing.URL, p.cfg.Prefixes.CSS, p.cfg.Prefixes.JS); path != "" {
		if err := p.storage.Delete(ctx, path); err != nil {
			p.logger.Warn(ctx, err, "asset object cleanup failed",
				"page_id", pageID, "path", path)
		}
	}
	if err := p.records.Delete(ctx, pageID, assetType); err != nil {
		return fmt.Errorf("delete %s record for page %d: %w", assetType, pageID, err)
	}

	p.logger.Info(ctx, "cleared asset",
		"page_id", pageID, "asset_type", string(assetType))
	return nil
}

func (p *Publisher) prefix(assetType extract.AssetType) string {
	if assetType == extract.CSS {
		return p.cfg.Prefixes.CSS
	}
	return p.cfg.Prefixes.JS
}
