// Package rewrite mutates outgoing HTML at request time: inline
// <style> and <script> tags whose content was published as static
// assets are stripped and replaced by a single reference element per
// asset type.
//
// The correctness-critical invariant lives here: a tag is only ever
// stripped when the full digest of its inner text matches a hash the
// published asset was actually built from. Content edited since the
// last publish hashes differently and stays inline, so stale assets
// are never silently substituted for authored content.
package rewrite

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/record"
)

// Rewriter strips published inline tags and injects asset references.
// It is stateless and safe for concurrent use.
type Rewriter struct{}

// NewRewriter creates a Rewriter.
func NewRewriter() *Rewriter { return &Rewriter{} }

// Rewrite processes one HTML document against the page's published
// asset records. Tags are matched with the same tokenization rules the
// scanner used at publish time; unmatched markup passes through
// byte-for-byte.
func (r *Rewriter) Rewrite(htmlText string, assets map[extract.AssetType]record.PublishedAsset) string {
	if len(assets) == 0 {
		return htmlText
	}

	out := r.strip(htmlText, assets)

	if asset, ok := assets[extract.CSS]; ok && asset.URL != "" {
		tag := `<link rel="stylesheet" href="` + html.EscapeString(asset.URL) + `">`
		out = injectBefore(out, "</head>", tag, false)
	}
	if asset, ok := assets[extract.JS]; ok && asset.URL != "" {
		tag := `<script src="` + html.EscapeString(asset.URL) + `"` + loadingAttrs(asset.Loading) + `></script>`
		out = injectBefore(out, "</body>", tag, true)
	}
	return out
}

// loadingAttrs renders the recorded script loading strategy as tag
// attributes, so the reference executes with the timing the inline
// scripts were authored with.
func loadingAttrs(loading string) string {
	switch loading {
	case extract.LoadingDefer:
		return " defer"
	case extract.LoadingAsync:
		return " async"
	case extract.LoadingModule:
		return ` type="module"`
	case extract.LoadingModuleAsync:
		return ` type="module" async`
	default:
		return ""
	}
}

// strip removes inline tags whose content digest matches the published
// record for their asset type. Everything else is emitted verbatim from
// the tokenizer's raw bytes.
func (r *Rewriter) strip(htmlText string, assets map[extract.AssetType]record.PublishedAsset) string {
	tokenizer := xhtml.NewTokenizer(strings.NewReader(htmlText))
	var out strings.Builder
	out.Grow(len(htmlText))

	for {
		tokenType := tokenizer.Next()
		if tokenType == xhtml.ErrorToken {
			return out.String()
		}

		if tokenType != xhtml.StartTagToken {
			out.Write(tokenizer.Raw())
			continue
		}

		raw := string(tokenizer.Raw())
		token := tokenizer.Token()

		var assetType extract.AssetType
		switch token.Data {
		case "style":
			assetType = extract.CSS
		case "script":
			assetType = extract.JS
		default:
			out.WriteString(raw)
			continue
		}

		asset, published := assets[assetType]
		if !published || extract.SkipTag(token) {
			out.WriteString(raw)
			continue
		}

		body, endTag, closed := captureBody(tokenizer, token.Data)
		digest := extract.Hash(strings.TrimSpace(body))

		if closed && asset.HasHash(digest) {
			// Matched a published fragment: drop the whole tag.
			continue
		}

		// Hash mismatch (or unterminated tag): keep everything as-is.
		out.WriteString(raw)
		out.WriteString(body)
		out.WriteString(endTag)
	}
}

// captureBody consumes tokens until the matching end tag, returning the
// raw body, the raw end tag, and whether the tag was properly closed.
func captureBody(tokenizer *xhtml.Tokenizer, tag string) (body, endTag string, closed bool) {
	var buf strings.Builder
	for {
		switch tokenizer.Next() {
		case xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == tag {
				return buf.String(), string(tokenizer.Raw()), true
			}
			buf.Write(tokenizer.Raw())
		case xhtml.ErrorToken:
			return buf.String(), "", false
		default:
			buf.Write(tokenizer.Raw())
		}
	}
}

// injectBefore inserts fragment immediately before the first
// case-insensitive occurrence of marker. When the marker is absent the
// fragment is prepended (atEnd=false) or appended (atEnd=true) so the
// reference is never lost on partial documents.
func injectBefore(htmlText, marker, fragment string, atEnd bool) string {
	idx := indexCaseInsensitive(htmlText, marker)
	if idx < 0 {
		if atEnd {
			return htmlText + fragment
		}
		return fragment + htmlText
	}
	return htmlText[:idx] + fragment + "\n" + htmlText[idx:]
}

func indexCaseInsensitive(haystack, needle string) int {
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}
