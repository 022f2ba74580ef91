// Package builder turns extracted inline fragments (plus, for some
// builders, the full rendered page HTML) into one built output blob per
// asset type.
//
// Builders are pure functions of their inputs and external tool state;
// they hold no mutable state across invocations. Concrete builders are
// resolved by name through a registry so embedding applications can plug
// in custom implementations next to the built-in raw and tailwind ones.
package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/logging"
)

// Builder is the common contract for asset builders.
type Builder interface {
	// Name returns the registry name of the builder.
	Name() string

	// RequiresHTMLContent reports whether Build needs the full rendered
	// page HTML. The orchestrator renders the page only when at least
	// one configured builder requires it.
	RequiresHTMLContent() bool

	// Build produces the output blob for one asset type from the
	// extracted fragments. htmlContent is empty unless
	// RequiresHTMLContent. An empty return means nothing to publish.
	Build(ctx context.Context, htmlContent string, fragments []string, assetType extract.AssetType) (string, error)
}

// Factory constructs a builder from configuration.
type Factory func(cfg *config.Config, logger logging.Logger) (Builder, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a builder factory available under a name. Registering
// a duplicate name panics; builders are registered once at startup.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("builder: duplicate registration for %q", name))
	}
	registry[name] = factory
}

// New resolves a registered builder by name.
func New(name string, cfg *config.Config, logger logging.Logger) (Builder, error) {
	registryMu.RLock()
	factory, exists := registry[name]
	registryMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("builder: unknown builder %q (registered: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(cfg, logger)
}

// Names returns the registered builder names, sorted.
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

// Join concatenates fragments with a blank-line separator, preserving
// order. This is the canonical raw output shared by the raw builder and
// every degraded build path.
func Join(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	return strings.Join(fragments, "\n\n")
}
