package builder

import (
	"context"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/logging"
)

// RawBuilder concatenates extracted fragments as-is, joined with blank
// lines. It never invokes an external process and never fails.
type RawBuilder struct{}

// NewRawBuilder creates the raw builder.
func NewRawBuilder() *RawBuilder { return &RawBuilder{} }

// Name returns "raw".
func (b *RawBuilder) Name() string { return "raw" }

// RequiresHTMLContent is false: the raw builder only needs fragments.
func (b *RawBuilder) RequiresHTMLContent() bool { return false }

// Build joins the fragments in order. Empty input yields "".
func (b *RawBuilder) Build(ctx context.Context, htmlContent string, fragments []string, assetType extract.AssetType) (string, error) {
	return Join(fragments), nil
}

func init() {
	Register("raw", func(cfg *config.Config, logger logging.Logger) (Builder, error) {
		return NewRawBuilder(), nil
	})
}
