package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpub/internal/publish"
)

var (
	rebuildPages  []int64
	rebuildAll    bool
	rebuildDryRun bool
)

// rebuildCmd republishes page assets in bulk.
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild published page assets",
	Long: `Rebuild extracted CSS/JS assets for pages.

With no flags, every live page that already has a published asset
record is rebuilt. Use --all to rebuild every live page, or --pages to
target specific page ids. --dry-run reports the paths and hashes a real
run would produce without writing anything.

A page that fails to rebuild is reported and skipped; the command keeps
going and exits successfully with summary counts.

Examples:
  assetpub rebuild
  assetpub rebuild --all
  assetpub rebuild --pages 3,7,12 --dry-run`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().Int64SliceVar(&rebuildPages, "pages", nil, "comma-separated page ids to rebuild")
	rebuildCmd.Flags().BoolVar(&rebuildAll, "all", false, "rebuild every live page")
	rebuildCmd.Flags().BoolVar(&rebuildDryRun, "dry-run", false, "report what would be rebuilt without writing")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.publisher.Rebuild(cmd.Context(), publish.RebuildOptions{
		PageIDs: rebuildPages,
		All:     rebuildAll,
		DryRun:  rebuildDryRun,
	})
	if err != nil {
		return err
	}

	printRebuildReport(cmd, report)
	return nil
}

func printRebuildReport(cmd *cobra.Command, report publish.RebuildReport) {
	for _, result := range report.Results {
		switch {
		case result.Err != nil:
			cmd.Printf("FAIL  page %d (%s): %v\n", result.PageID, result.Title, result.Err)
		case report.DryRun:
			cmd.Printf("plan  page %d (%s)\n", result.PageID, result.Title)
			for _, plan := range result.Plans {
				if plan.Empty {
					cmd.Printf("      %s: no content\n", plan.Type)
					continue
				}
				cmd.Printf("      %s: %s\n", plan.Type, plan.Path)
			}
		default:
			cmd.Printf("ok    page %d (%s)\n", result.PageID, result.Title)
		}
	}

	if report.DryRun {
		cmd.Printf("Dry run. Pages: %d\n", report.Rebuilt)
		return
	}
	cmd.Printf("Rebuilt: %d, Errors: %d\n", report.Rebuilt, report.Failed)
}
