package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/logging"
)

// FSBackend stores assets on a filesystem rooted at a directory and
// serves URLs under a configured base URL. The afero abstraction keeps
// it testable in memory and lets embedders mount any afero-compatible
// filesystem (including remote ones) behind the same backend.
type FSBackend struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// NewFSBackend creates a filesystem backend rooted at root.
func NewFSBackend(fs afero.Fs, root, baseURL string) *FSBackend {
	return &FSBackend{
		fs:      fs,
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Save writes the content, creating parent directories as needed, and
// returns the public URL. Existing objects are overwritten in place.
func (b *FSBackend) Save(ctx context.Context, relPath string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := b.resolve(relPath)
	if err != nil {
		return "", err
	}
	if err := b.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}
	if err := afero.WriteFile(b.fs, full, content, 0o644); err != nil {
		return "", fmt.Errorf("write asset %s: %w", relPath, err)
	}
	return b.url(relPath), nil
}

// Delete removes the object; absent objects are ignored.
func (b *FSBackend) Delete(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(relPath)
	if err != nil {
		return err
	}
	if err := b.fs.Remove(full); err != nil {
		if exists, _ := afero.Exists(b.fs, full); !exists {
			return nil
		}
		return fmt.Errorf("delete asset %s: %w", relPath, err)
	}
	return nil
}

// Exists reports whether the object is present.
func (b *FSBackend) Exists(ctx context.Context, relPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := b.resolve(relPath)
	if err != nil {
		return false, err
	}
	return afero.Exists(b.fs, full)
}

// resolve joins the relative path under the root and rejects paths that
// would escape it.
func (b *FSBackend) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("storage path must not be empty")
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage path %q escapes root", relPath)
	}
	return filepath.Join(b.root, clean), nil
}

func (b *FSBackend) url(relPath string) string {
	return b.baseURL + "/" + path.Clean(filepath.ToSlash(relPath))
}

func init() {
	Register("fs", func(cfg *config.Config, logger logging.Logger) (Backend, error) {
		return NewFSBackend(afero.NewOsFs(), cfg.Storage.Root, cfg.Storage.BaseURL), nil
	})
}
