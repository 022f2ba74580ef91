package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/conneroisu/assetpub/internal/extract"
)

// SQLiteStore persists published asset records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS published_assets (
	page_id        INTEGER NOT NULL,
	asset_type     TEXT    NOT NULL,
	url            TEXT    NOT NULL,
	content_hashes TEXT    NOT NULL,
	loading        TEXT    NOT NULL DEFAULT '',
	updated_at     INTEGER NOT NULL,
	UNIQUE (page_id, asset_type)
);
CREATE INDEX IF NOT EXISTS idx_published_assets_page ON published_assets (page_id);
`

// OpenSQLite opens (creating if needed) a SQLite record store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("record store path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping record store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply record schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert creates or replaces the record for (PageID, AssetType).
func (s *SQLiteStore) Upsert(ctx context.Context, asset PublishedAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hashes, err := json.Marshal(asset.ContentHashes)
	if err != nil {
		return fmt.Errorf("encode content hashes: %w", err)
	}
	updatedAt := asset.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO published_assets (page_id, asset_type, url, content_hashes, loading, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (page_id, asset_type)
		DO UPDATE SET url = excluded.url,
		              content_hashes = excluded.content_hashes,
		              loading = excluded.loading,
		              updated_at = excluded.updated_at`,
		asset.PageID, string(asset.AssetType), asset.URL, string(hashes), asset.Loading, updatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert published asset (page=%d type=%s): %w", asset.PageID, asset.AssetType, err)
	}
	return nil
}

// Get returns the record for a page and asset type.
func (s *SQLiteStore) Get(ctx context.Context, pageID int64, assetType extract.AssetType) (PublishedAsset, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT page_id, asset_type, url, content_hashes, loading, updated_at
		FROM published_assets WHERE page_id = ? AND asset_type = ?`,
		pageID, string(assetType))
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PublishedAsset{}, false, nil
	}
	if err != nil {
		return PublishedAsset{}, false, err
	}
	return asset, true, nil
}

// ForPage returns every record for a page.
func (s *SQLiteStore) ForPage(ctx context.Context, pageID int64) ([]PublishedAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, asset_type, url, content_hashes, loading, updated_at
		FROM published_assets WHERE page_id = ? ORDER BY asset_type`,
		pageID)
	if err != nil {
		return nil, fmt.Errorf("query published assets for page %d: %w", pageID, err)
	}
	defer rows.Close()

	var assets []PublishedAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// Delete removes the record for (pageID, assetType).
func (s *SQLiteStore) Delete(ctx context.Context, pageID int64, assetType extract.AssetType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM published_assets WHERE page_id = ? AND asset_type = ?`,
		pageID, string(assetType))
	if err != nil {
		return fmt.Errorf("delete published asset (page=%d type=%s): %w", pageID, assetType, err)
	}
	return nil
}

// PageIDs lists the distinct pages that have records, ascending.
func (s *SQLiteStore) PageIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT page_id FROM published_assets ORDER BY page_id`)
	if err != nil {
		return nil, fmt.Errorf("query record page ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (PublishedAsset, error) {
	var (
		asset     PublishedAsset
		assetType string
		hashes    string
		updatedAt int64
	)
	if err := row.Scan(&asset.PageID, &assetType, &asset.URL, &hashes, &asset.Loading, &updatedAt); err != nil {
		return PublishedAsset{}, err
	}
	asset.AssetType = extract.AssetType(assetType)
	asset.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if err := json.Unmarshal([]byte(hashes), &asset.ContentHashes); err != nil {
		return PublishedAsset{}, fmt.Errorf("decode content hashes: %w", err)
	}
	return asset, nil
}

var _ Store = (*SQLiteStore)(nil)
