// Package storage persists built asset blobs and hands back the URLs
// pages will reference. Backends are resolved by name through a
// registry so cloud object stores can be plugged in next to the
// built-in filesystem backend.
//
// Paths are content-addressed by the orchestrator, so concurrent writes
// to the same path carry identical bytes and last-write-wins is safe.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/logging"
)

// Backend is the storage capability the publish pipeline depends on.
type Backend interface {
	// Save writes content at the relative path, overwriting any
	// previous object, and returns the absolute URL for it.
	Save(ctx context.Context, path string, content []byte) (string, error)

	// Delete removes the object at the relative path. Deleting an
	// absent object is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object is stored at the relative path.
	Exists(ctx context.Context, path string) (bool, error)
}

// Factory constructs a backend from configuration.
type Factory func(cfg *config.Config, logger logging.Logger) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend factory available under a name.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("storage: duplicate registration for %q", name))
	}
	registry[name] = factory
}

// New resolves a registered backend by name.
func New(name string, cfg *config.Config, logger logging.Logger) (Backend, error) {
	registryMu.RLock()
	factory, exists := registry[name]
	registryMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("storage: unknown backend %q (registered: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(cfg, logger)
}

// Names returns the registered backend names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PathFromURL maps a stored asset URL back to its relative storage
// path by locating one of the configured prefixes inside the URL path.
// Returns "" when the URL does not contain a known prefix.
func PathFromURL(url string, prefixes ...string) string {
	trimmed := url
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
		if slash := strings.Index(trimmed, "/"); slash >= 0 {
			trimmed = trimmed[slash:]
		}
	}
	trimmed = strings.TrimPrefix(trimmed, "/")

	for _, prefix := range prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return trimmed
		}
	}
	for _, prefix := range prefixes {
		if idx := strings.Index(trimmed, prefix); idx >= 0 {
			return trimmed[idx:]
		}
	}
	return ""
}
