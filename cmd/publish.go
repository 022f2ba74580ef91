package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

// publishCmd rebuilds assets for one page, the same path the CMS
// publish hook takes.
var publishCmd = &cobra.Command{
	Use:   "publish <page-id>",
	Short: "Publish assets for a single page",
	Long: `Run the asset pipeline for one page: scan its content for inline
<style> and <script> tags, build, hash, store, and record the result.

A page that is not live has its stored assets cleared instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	pageID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.publisher.PublishPageByID(cmd.Context(), pageID); err != nil {
		return err
	}
	cmd.Printf("published page %d\n", pageID)
	return nil
}
