package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpub/internal/watcher"
)

var watchDebounce time.Duration

// watchCmd rebuilds page assets whenever content files change.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild assets when page content files change",
	Long: `Watch the content directory and republish a page's assets whenever
its document is created or modified. Rapid successive writes to the
same file collapse into one rebuild.

Runs until interrupted (Ctrl-C).`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a change triggers a rebuild")
}

func runWatch(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	w, err := watcher.New(application.cfg.Content.Dir, watchDebounce, application.publisher, application.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
