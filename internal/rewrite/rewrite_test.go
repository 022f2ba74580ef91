package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/record"
)

func cssAssets(url string, sources ...string) map[extract.AssetType]record.PublishedAsset {
	hashes := make([]string, len(sources))
	for i, source := range sources {
		hashes[i] = extract.Hash(source)
	}
	return map[extract.AssetType]record.PublishedAsset{
		extract.CSS: {PageID: 1, AssetType: extract.CSS, URL: url, ContentHashes: hashes},
	}
}

func TestRewrite_RoundTrip(t *testing.T) {
	rewriter := NewRewriter()
	html := `<html><head><title>t</title></head><body><style>.a{color:red}</style><p>hi</p></body></html>`

	out := rewriter.Rewrite(html, cssAssets("/static/page-assets/css/1-abcd.css", ".a{color:red}"))

	assert.NotContains(t, out, "<style>")
	assert.NotContains(t, out, ".a{color:red}")
	assert.Equal(t, 1, strings.Count(out, `<link rel="stylesheet" href="/static/page-assets/css/1-abcd.css">`))
	assert.Contains(t, out, "<p>hi</p>")
}

func TestRewrite_HashMismatchLeavesTagInline(t *testing.T) {
	rewriter := NewRewriter()
	// Published with content A; the page now renders content B.
	assets := cssAssets("/static/a.css", ".a{color:red}")
	html := `<head></head><body><style>.a{color:blue}</style></body>`

	out := rewriter.Rewrite(html, assets)

	assert.Contains(t, out, "<style>.a{color:blue}</style>", "edited tag must stay inline")
	// The stored asset's reference is still injected; nothing for the
	// edited content's hash exists to reference.
	assert.Contains(t, out, `href="/static/a.css"`)
}

func TestRewrite_FullDigestComparedNotPrefix(t *testing.T) {
	rewriter := NewRewriter()
	// A record whose hash list holds only a truncated digest must never
	// match: matching is full-digest only.
	assets := map[extract.AssetType]record.PublishedAsset{
		extract.CSS: {
			AssetType:     extract.CSS,
			URL:           "/static/a.css",
			ContentHashes: []string{extract.ShortHash(".a{}", 8)},
		},
	}

	out := rewriter.Rewrite(`<style>.a{}</style>`, assets)

	assert.Contains(t, out, "<style>.a{}</style>")
}

func TestRewrite_OptOutTagUntouched(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets("/static/a.css", ".keep{}")
	html := `<head></head><style data-no-extract>.keep{}</style>`

	out := rewriter.Rewrite(html, assets)

	assert.Contains(t, out, `<style data-no-extract>.keep{}</style>`,
		"opt-out tags are never rewritten, matching hash or not")
}

func TestRewrite_ExternalScriptNeverStripped(t *testing.T) {
	rewriter := NewRewriter()
	assets := map[extract.AssetType]record.PublishedAsset{
		extract.JS: {AssetType: extract.JS, URL: "/static/a.js", ContentHashes: []string{extract.Hash("")}},
	}
	html := `<body><script src="/vendor/lib.js"></script></body>`

	out := rewriter.Rewrite(html, assets)

	assert.Contains(t, out, `<script src="/vendor/lib.js"></script>`)
}

func TestRewrite_OneInjectionPerType(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets("/static/a.css", ".a{}", ".b{}")
	html := `<head></head><body><style>.a{}</style><style>.b{}</style></body>`

	out := rewriter.Rewrite(html, assets)

	assert.NotContains(t, out, "<style>")
	assert.Equal(t, 1, strings.Count(out, "<link "), "one reference per asset type, not per tag")
}

func TestRewrite_JSInjectedBeforeBodyClose(t *testing.T) {
	rewriter := NewRewriter()
	assets := map[extract.AssetType]record.PublishedAsset{
		extract.JS: {AssetType: extract.JS, URL: "/static/p.js", ContentHashes: []string{extract.Hash("go();")}},
	}
	html := `<html><body><script>go();</script><p>x</p></body></html>`

	out := rewriter.Rewrite(html, assets)

	assert.NotContains(t, out, "<script>go();</script>")
	scriptIdx := strings.Index(out, `<script src="/static/p.js"></script>`)
	bodyIdx := strings.Index(out, "</body>")
	require.GreaterOrEqual(t, scriptIdx, 0)
	require.GreaterOrEqual(t, bodyIdx, 0)
	assert.Less(t, scriptIdx, bodyIdx)
}

func TestRewrite_ScriptLoadingAttributesInjected(t *testing.T) {
	rewriter := NewRewriter()
	cases := []struct {
		name    string
		loading string
		want    string
	}{
		{"blocking", extract.LoadingBlocking, `<script src="/static/p.js"></script>`},
		{"defer", extract.LoadingDefer, `<script src="/static/p.js" defer></script>`},
		{"async", extract.LoadingAsync, `<script src="/static/p.js" async></script>`},
		{"module", extract.LoadingModule, `<script src="/static/p.js" type="module"></script>`},
		{"module async", extract.LoadingModuleAsync, `<script src="/static/p.js" type="module" async></script>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assets := map[extract.AssetType]record.PublishedAsset{
				extract.JS: {
					AssetType:     extract.JS,
					URL:           "/static/p.js",
					ContentHashes: []string{extract.Hash("go();")},
					Loading:       tc.loading,
				},
			}

			out := rewriter.Rewrite(`<body><script>go();</script></body>`, assets)

			assert.NotContains(t, out, "<script>go();</script>")
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestRewrite_MixedMatchAndMismatch(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets("/static/a.css", ".published{}")
	html := `<head></head><style>.published{}</style><style>.edited{}</style>`

	out := rewriter.Rewrite(html, assets)

	assert.NotContains(t, out, ".published{}")
	assert.Contains(t, out, "<style>.edited{}</style>")
}

func TestRewrite_NoAssetsPassthrough(t *testing.T) {
	rewriter := NewRewriter()
	html := `<style>.a{}</style>`

	assert.Equal(t, html, rewriter.Rewrite(html, nil))
}

func TestRewrite_CaseInsensitiveTagsAndMarkers(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets("/static/a.css", ".a{}")
	html := `<HEAD></HEAD><STYLE>.a{}</STYLE>`

	out := rewriter.Rewrite(html, assets)

	assert.NotContains(t, strings.ToLower(out), "<style>")
	// Injection point found despite the uppercase marker.
	linkIdx := strings.Index(out, "<link ")
	headIdx := strings.Index(out, "</HEAD>")
	require.GreaterOrEqual(t, linkIdx, 0)
	assert.Less(t, linkIdx, headIdx)
}

func TestRewrite_MissingHeadFallsBackToPrepend(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets("/static/a.css", ".a{}")

	out := rewriter.Rewrite(`<style>.a{}</style><p>x</p>`, assets)

	assert.True(t, strings.HasPrefix(out, "<link "), "no </head>: reference is prepended")
}

func TestRewrite_AttributePreservationOnKeptTags(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets("/static/a.css", ".other{}")
	html := `<style media="print" id="x">.kept{}</style>`

	out := rewriter.Rewrite(html, assets)

	assert.Contains(t, out, `<style media="print" id="x">.kept{}</style>`)
}

func TestRewrite_URLEscapedInAttribute(t *testing.T) {
	rewriter := NewRewriter()
	assets := cssAssets(`/static/a.css?v=1&x="q"`, ".a{}")

	out := rewriter.Rewrite(`<head></head><style>.a{}</style>`, assets)

	assert.Contains(t, out, "&amp;")
	assert.NotContains(t, out, `x="q"">`)
}

func TestRewrite_WhitespaceInsensitiveMatch(t *testing.T) {
	rewriter := NewRewriter()
	// Publish-time extraction trims the body; rewrite-time hashing must
	// trim identically or matching breaks.
	assets := cssAssets("/static/a.css", ".a{}")
	html := "<head></head><style>\n  .a{}\n</style>"

	out := rewriter.Rewrite(html, assets)

	assert.NotContains(t, out, ".a{}\n</style>")
	assert.Contains(t, out, "<link ")
}
