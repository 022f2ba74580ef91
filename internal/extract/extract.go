// Package extract discovers inline <style> and <script> tags in rendered
// CMS content and captures their bodies as fragments for the build
// pipeline.
//
// Scanning is tag-level tokenization via golang.org/x/net/html, not DOM
// parsing: the tokenizer is tolerant of malformed markup, matches tag
// names case-insensitively, and treats style/script bodies as raw text.
// Tags carrying the data-no-extract attribute and external
// <script src=...> references are never captured. The same matching
// rules are reused by the rewrite engine so that a tag extracted at
// publish time is recognized again at request time.
package extract

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/conneroisu/assetpub/internal/content"
	"github.com/conneroisu/assetpub/internal/logging"
)

// AssetType identifies the kind of asset a fragment belongs to.
type AssetType string

const (
	// CSS fragments come from inline <style> tags.
	CSS AssetType = "css"
	// JS fragments come from inline <script> tags.
	JS AssetType = "js"
)

// Ext returns the file extension for the asset type.
func (t AssetType) Ext() string { return string(t) }

// Types lists all asset types in processing order.
func Types() []AssetType { return []AssetType{CSS, JS} }

// OptOutAttr is the boolean attribute that exempts a tag from
// extraction and rewriting.
const OptOutAttr = "data-no-extract"

// Script loading strategies, captured from the inline tag's attributes
// so the published reference can execute with the same timing.
const (
	LoadingBlocking    = ""
	LoadingDefer       = "defer"
	LoadingAsync       = "async"
	LoadingModule      = "module"
	LoadingModuleAsync = "module-async"
)

// Fragment is one inline tag's captured body.
type Fragment struct {
	Type AssetType
	// Text is the trimmed inner text of the tag.
	Text string
	// Hash is the full hex digest of Text, computed once at capture.
	Hash string
	// Loading is the script loading strategy; always blocking for CSS.
	Loading string
}

// Extract scans HTML for inline style and script tags and returns the
// captured fragments per kind, in document order. Empty bodies are
// dropped after trimming.
func Extract(htmlText string) (styles, scripts []Fragment) {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlText))

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			// EOF or unrecoverable input; scanning is best-effort.
			return styles, scripts
		}
		if tokenType != html.StartTagToken {
			continue
		}

		token := tokenizer.Token()
		assetType, ok := assetTypeForTag(token.Data)
		if !ok {
			continue
		}
		if SkipTag(token) {
			continue
		}

		body, closed := rawText(tokenizer, token.Data)
		if !closed {
			// A tag that never closes is left alone: the rewriter could
			// never match it, so publishing it would serve the content
			// twice.
			continue
		}
		text := strings.TrimSpace(body)
		if text == "" {
			continue
		}

		fragment := Fragment{Type: assetType, Text: text, Hash: Hash(text)}
		if assetType == JS {
			fragment.Loading = ScriptLoading(token)
		}
		switch assetType {
		case CSS:
			styles = append(styles, fragment)
		case JS:
			scripts = append(scripts, fragment)
		}
	}
}

// ExtractFromPage renders every content block on the page and
// accumulates fragments across blocks in document order. A block that
// fails to render is skipped, never aborting the page's extraction.
func ExtractFromPage(ctx context.Context, page content.Page, logger logging.Logger) map[AssetType][]Fragment {
	fragments := map[AssetType][]Fragment{}

	blocks, err := page.RenderBlocks(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn(ctx, err, "block rendering failed, extracting nothing",
				"page_id", page.ID())
		}
		return fragments
	}

	for _, block := range blocks {
		styles, scripts := Extract(block)
		fragments[CSS] = append(fragments[CSS], styles...)
		fragments[JS] = append(fragments[JS], scripts...)
	}
	return fragments
}

// Texts projects fragments onto their raw source texts, preserving order.
func Texts(fragments []Fragment) []string {
	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text
	}
	return texts
}

// Hashes projects fragments onto their full digests, preserving order.
func Hashes(fragments []Fragment) []string {
	hashes := make([]string, len(fragments))
	for i, fragment := range fragments {
		hashes[i] = fragment.Hash
	}
	return hashes
}

// SkipTag reports whether an inline style/script start tag is exempt
// from extraction: it carries the opt-out attribute, or it is an
// external <script src=...> reference.
func SkipTag(token html.Token) bool {
	for _, attr := range token.Attr {
		if strings.EqualFold(attr.Key, OptOutAttr) {
			return true
		}
		if token.Data == "script" && strings.EqualFold(attr.Key, "src") {
			return true
		}
	}
	return false
}

// assetTypeForTag maps a lowercased tag name to its asset type.
func assetTypeForTag(tag string) (AssetType, bool) {
	switch tag {
	case "style":
		return CSS, true
	case "script":
		return JS, true
	default:
		return "", false
	}
}

// ScriptLoading derives the loading strategy from a script start tag's
// attributes.
func ScriptLoading(token html.Token) string {
	var isModule, isAsync, isDefer bool
	for _, attr := range token.Attr {
		switch {
		case strings.EqualFold(attr.Key, "type") && strings.EqualFold(attr.Val, "module"):
			isModule = true
		case strings.EqualFold(attr.Key, "async"):
			isAsync = true
		case strings.EqualFold(attr.Key, "defer"):
			isDefer = true
		}
	}
	switch {
	case isModule && isAsync:
		return LoadingModuleAsync
	case isModule:
		return LoadingModule
	case isAsync:
		return LoadingAsync
	case isDefer:
		return LoadingDefer
	default:
		return LoadingBlocking
	}
}

// rawText consumes tokens until the matching end tag and returns the
// raw body, plus whether the tag was properly closed. Tags still open
// at EOF report closed=false and are never extracted.
func rawText(tokenizer *html.Tokenizer, tag string) (string, bool) {
	var body strings.Builder
	for {
		switch tokenizer.Next() {
		case html.TextToken:
			body.Write(tokenizer.Text())
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == tag {
				return body.String(), true
			}
		case html.ErrorToken:
			return body.String(), false
		}
	}
}
