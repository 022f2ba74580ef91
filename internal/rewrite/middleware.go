package rewrite

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/logging"
	"github.com/conneroisu/assetpub/internal/record"
)

// PageResolver maps a request to the content page it serves. The host
// application decides how pages are routed; the middleware only needs
// the identity. ok=false means the response is not a page response and
// passes through untouched.
type PageResolver func(r *http.Request) (pageID int64, ok bool)

// PreviewDetector reports whether the request renders a draft preview.
// Previews keep inline tags as authored and are never rewritten or
// minified.
type PreviewDetector func(r *http.Request) bool

// DefaultPreviewDetector matches the conventional CMS preview URL
// patterns.
func DefaultPreviewDetector(r *http.Request) bool {
	path := r.URL.Path
	return strings.Contains(path, "/edit/preview/") || strings.HasSuffix(path, "/preview/")
}

// Middleware rewrites confirmed HTML page responses against the record
// store and optionally minifies the final document.
type Middleware struct {
	cfg      *config.Config
	records  record.Store
	rewriter *Rewriter
	minifier *HTMLMinifier
	resolver PageResolver
	preview  PreviewDetector
	logger   logging.Logger
}

// NewMiddleware creates the response-rewriting middleware.
func NewMiddleware(cfg *config.Config, records record.Store, resolver PageResolver, preview PreviewDetector, logger logging.Logger) *Middleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if preview == nil {
		preview = DefaultPreviewDetector
	}
	return &Middleware{
		cfg:      cfg,
		records:  records,
		rewriter: NewRewriter(),
		minifier: NewHTMLMinifier(logger),
		resolver: resolver,
		preview:  preview,
		logger:   logger.WithComponent("rewrite"),
	}
}

// Handler wraps the next handler with response rewriting.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &bufferedResponse{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.streamed {
			// The handler flushed mid-response: the body already went
			// out and cannot be rewritten.
			return
		}

		body := recorder.buf.String()
		contentType := recorder.Header().Get("Content-Type")

		if strings.Contains(contentType, "text/html") && recorder.status == http.StatusOK {
			if m.preview(r) {
				body = m.decoratePreview(body)
			} else if pageID, ok := m.resolver(r); ok {
				body = m.rewritePage(r, pageID, body)
			}
		}

		recorder.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(recorder.status)
		_, _ = w.Write([]byte(body))
	})
}

// rewritePage applies stripping/injection and optional minification for
// a resolved live page response.
func (m *Middleware) rewritePage(r *http.Request, pageID int64, body string) string {
	assets, err := m.records.ForPage(r.Context(), pageID)
	if err != nil {
		m.logger.Warn(r.Context(), err, "record lookup failed, serving response unmodified",
			"page_id", pageID)
		return body
	}
	if len(assets) > 0 {
		byType := make(map[extract.AssetType]record.PublishedAsset, len(assets))
		for _, asset := range assets {
			byType[asset.AssetType] = asset
		}
		body = m.rewriter.Rewrite(body, byType)
	}

	if m.cfg.Optimize.MinifyHTML {
		body = m.minifier.Minify(r.Context(), body)
	}
	return body
}

// decoratePreview injects the Tailwind CDN runtime into preview
// responses when the CSS builder is Tailwind-flavored, so editors see
// utility classes rendered before publishing. The CDN script never
// reaches published pages.
func (m *Middleware) decoratePreview(body string) string {
	if !IsTailwindBuilder(m.cfg) {
		return body
	}
	if indexCaseInsensitive(body, "</head>") < 0 {
		return body
	}
	tag := `<script src="` + m.cfg.Tailwind.CDNURL + `"></script>`
	return injectBefore(body, "</head>", tag, false)
}

// IsTailwindBuilder reports whether the configured CSS builder is
// Tailwind-flavored (covers custom builders registered under names
// like "tailwind-v4").
func IsTailwindBuilder(cfg *config.Config) bool {
	return strings.Contains(strings.ToLower(cfg.Builders.CSS), "tailwind")
}

// bufferedResponse captures the handler's output so the body can be
// mutated before it reaches the client. A handler that flushes opts out
// of rewriting: buffered bytes are forwarded and subsequent writes
// stream through.
type bufferedResponse struct {
	http.ResponseWriter
	buf      bytes.Buffer
	status   int
	streamed bool
}

func (b *bufferedResponse) WriteHeader(status int) {
	b.status = status
}

func (b *bufferedResponse) Write(data []byte) (int, error) {
	if b.streamed {
		return b.ResponseWriter.Write(data)
	}
	return b.buf.Write(data)
}

// Flush switches to passthrough streaming: rewriting a partially sent
// response would corrupt it.
func (b *bufferedResponse) Flush() {
	if !b.streamed {
		b.streamed = true
		b.ResponseWriter.WriteHeader(b.status)
		_, _ = b.ResponseWriter.Write(b.buf.Bytes())
		b.buf.Reset()
	}
	if flusher, ok := b.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
