package rewrite

import (
	"context"
	"regexp"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"

	"github.com/conneroisu/assetpub/internal/logging"
)

// HTMLMinifier minifies whole HTML responses as an optional post-step
// after rewriting. It is fail-open: any minifier error returns the
// input unchanged with a warning logged.
type HTMLMinifier struct {
	m      *minify.M
	logger logging.Logger
}

// NewHTMLMinifier creates a minifier for text/html responses.
func NewHTMLMinifier(logger logging.Logger) *HTMLMinifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := minify.New()
	m.AddFuncRegexp(regexp.MustCompile("^text/html$"), minhtml.Minify)
	return &HTMLMinifier{m: m, logger: logger.WithComponent("minifier")}
}

// Minify returns the minified document, or the original on any error.
func (h *HTMLMinifier) Minify(ctx context.Context, htmlText string) string {
	minified, err := h.m.String("text/html", htmlText)
	if err != nil {
		h.logger.Warn(ctx, err, "html minification failed, returning original response")
		return htmlText
	}
	return minified
}
