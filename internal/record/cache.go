package record

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/assetpub/internal/extract"
)

// DefaultCacheTTL bounds how long the rewrite path may serve records
// without consulting the underlying store. Publishes invalidate the
// affected page immediately, so the TTL only matters for out-of-band
// store mutations.
const DefaultCacheTTL = 5 * time.Minute

// CachedStore fronts a Store with a per-page read-through cache for the
// request-time lookup path. The underlying store remains authoritative;
// every write through this wrapper invalidates the page's cache entry.
type CachedStore struct {
	Store
	ttl time.Duration

	mu      sync.RWMutex
	entries map[int64]cacheEntry
}

type cacheEntry struct {
	assets  []PublishedAsset
	expires time.Time
}

// NewCachedStore wraps a store with a read-through cache. A zero ttl
// uses DefaultCacheTTL.
func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		Store:   store,
		ttl:     ttl,
		entries: make(map[int64]cacheEntry),
	}
}

// ForPage returns the page's records, served from cache when fresh.
func (c *CachedStore) ForPage(ctx context.Context, pageID int64) ([]PublishedAsset, error) {
	c.mu.RLock()
	entry, ok := c.entries[pageID]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.assets, nil
	}

	assets, err := c.Store.ForPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[pageID] = cacheEntry{assets: assets, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return assets, nil
}

// Upsert writes through and invalidates the page's cache entry.
func (c *CachedStore) Upsert(ctx context.Context, asset PublishedAsset) error {
	if err := c.Store.Upsert(ctx, asset); err != nil {
		return err
	}
	c.Invalidate(asset.PageID)
	return nil
}

// Delete writes through and invalidates the page's cache entry.
func (c *CachedStore) Delete(ctx context.Context, pageID int64, assetType extract.AssetType) error {
	if err := c.Store.Delete(ctx, pageID, assetType); err != nil {
		return err
	}
	c.Invalidate(pageID)
	return nil
}

// Invalidate drops the cached records for a page.
func (c *CachedStore) Invalidate(pageID int64) {
	c.mu.Lock()
	delete(c.entries, pageID)
	c.mu.Unlock()
}

var _ Store = (*CachedStore)(nil)
