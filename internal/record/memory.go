package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/assetpub/internal/extract"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[memoryKey]PublishedAsset
}

type memoryKey struct {
	pageID    int64
	assetType extract.AssetType
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[memoryKey]PublishedAsset)}
}

// Upsert creates or replaces the record for (PageID, AssetType).
func (s *MemoryStore) Upsert(ctx context.Context, asset PublishedAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if asset.UpdatedAt.IsZero() {
		asset.UpdatedAt = time.Now().UTC()
	}
	asset.ContentHashes = append([]string(nil), asset.ContentHashes...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[memoryKey{asset.PageID, asset.AssetType}] = asset
	return nil
}

// Get returns the record for a page and asset type.
func (s *MemoryStore) Get(ctx context.Context, pageID int64, assetType extract.AssetType) (PublishedAsset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[memoryKey{pageID, assetType}]
	return asset, ok, nil
}

// ForPage returns every record for a page, css before js.
func (s *MemoryStore) ForPage(ctx context.Context, pageID int64) ([]PublishedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var assets []PublishedAsset
	for _, assetType := range extract.Types() {
		if asset, ok := s.assets[memoryKey{pageID, assetType}]; ok {
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

// Delete removes the record for (pageID, assetType).
func (s *MemoryStore) Delete(ctx context.Context, pageID int64, assetType extract.AssetType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assets, memoryKey{pageID, assetType})
	return nil
}

// PageIDs lists the distinct pages that have records, ascending.
func (s *MemoryStore) PageIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[int64]bool{}
	var ids []int64
	for key := range s.assets {
		if !seen[key.pageID] {
			seen[key.pageID] = true
			ids = append(ids, key.pageID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
