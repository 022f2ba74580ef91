package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpub/internal/record"
	"github.com/conneroisu/assetpub/internal/rewrite"
)

var serveAddr string

// serveCmd runs a page server with response rewriting applied, mainly
// for previewing published assets locally.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pages with asset rewriting applied",
	Long: `Serve rendered pages over HTTP with the response rewrite applied:
inline tags whose content was published are stripped and replaced by
references to the stored assets.

Routes:
  /pages/{id}/           rendered page, rewritten
  /pages/{id}/preview/   rendered page as authored (no rewriting)
  {base_url}/...         stored asset files

Runs until interrupted (Ctrl-C).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	cfg := application.cfg

	// Rewrites read records on every page request; the short-TTL cache
	// keeps that off the database. Publishes from another process show
	// up after at most one TTL.
	records := record.NewCachedStore(application.records, record.DefaultCacheTTL)

	middleware := rewrite.NewMiddleware(cfg, records, resolvePagePath, nil, application.logger)

	mux := http.NewServeMux()
	mux.Handle("/pages/", middleware.Handler(pageHandler(application)))

	assetPrefix := strings.TrimSuffix(cfg.Storage.BaseURL, "/") + "/"
	mux.Handle(assetPrefix, http.StripPrefix(assetPrefix, http.FileServer(http.Dir(cfg.Storage.Root))))

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	application.logger.Info(ctx, "serving pages", "addr", serveAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// resolvePagePath extracts the page id from /pages/{id}/ style paths,
// including the preview variant.
func resolvePagePath(r *http.Request) (int64, bool) {
	rest, ok := strings.CutPrefix(r.URL.Path, "/pages/")
	if !ok {
		return 0, false
	}
	rest = strings.TrimSuffix(rest, "/")
	rest = strings.TrimSuffix(rest, "/preview")
	pageID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return pageID, true
}

// pageHandler renders pages from the content source.
func pageHandler(application *app) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageID, ok := resolvePagePath(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		page, err := application.source.PageByID(r.Context(), pageID)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		htmlContent, err := page.RenderHTML(r.Context())
		if err != nil {
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(htmlContent))
	})
}
