// Package record persists the durable mapping from (page, asset type)
// to the published asset's URL and the content hashes it was built
// from. These records are the single source of truth the rewrite
// engine reads at request time.
package record

import (
	"context"
	"time"

	"github.com/conneroisu/assetpub/internal/extract"
)

// PublishedAsset is one live record per (page, asset type).
type PublishedAsset struct {
	PageID    int64
	AssetType extract.AssetType
	// URL is the absolute URL of the stored asset file.
	URL string
	// ContentHashes holds the full hex digest of each extracted
	// fragment's source text, in document order. Rewrite matching
	// compares against these, never against the filename prefix.
	ContentHashes []string
	// Loading is the script loading strategy the injected reference
	// must carry ("", "defer", "async", "module", "module-async").
	// Always empty for CSS.
	Loading   string
	UpdatedAt time.Time
}

// HasHash reports whether the full digest is one the asset was built from.
func (a PublishedAsset) HasHash(digest string) bool {
	for _, h := range a.ContentHashes {
		if h == digest {
			return true
		}
	}
	return false
}

// Store is the persistence contract for published asset records.
// Upserts are keyed by (page, asset type); concurrent publishes of the
// same page resolve last-writer-wins, which is safe because storage
// paths are content-addressed.
type Store interface {
	// Upsert creates or replaces the record for (PageID, AssetType).
	Upsert(ctx context.Context, asset PublishedAsset) error

	// Get returns the record for a page and asset type.
	Get(ctx context.Context, pageID int64, assetType extract.AssetType) (PublishedAsset, bool, error)

	// ForPage returns every record for a page.
	ForPage(ctx context.Context, pageID int64) ([]PublishedAsset, error)

	// Delete removes the record for (pageID, assetType); absent records
	// are ignored.
	Delete(ctx context.Context, pageID int64, assetType extract.AssetType) error

	// PageIDs lists the distinct pages that have records, ascending.
	PageIDs(ctx context.Context) ([]int64, error)

	// Close releases the store's resources.
	Close() error
}
