package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed and re-index the whole corpus",
	Long: `Re-embeds every live passage under the current embedding configuration
and rebuilds the vector index. Run after changing the embedding model.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Reconcile the document store and vector index",
	Long: `Compares the vector index against the document store. Vectors missing
from the index are restored from stored embeddings; index entries with
no live document behind them are removed. Safe to run at any time.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(checkCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	n, err := adminService.Reindex(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Re-indexed %d chunks\n", n)
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	report, err := adminService.CheckConsistency(cmd.Context())
	if err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}

	cmd.Printf("Live chunks: %d\n", report.LiveChunks)
	cmd.Printf("Restored:    %d\n", report.Restored)
	cmd.Printf("Orphans:     %d\n", report.Orphans)
	if report.Compacted > 0 {
		cmd.Printf("Compacted:   %d\n", report.Compacted)
	}
	if report.Restored == 0 && report.Orphans == 0 {
		cmd.Println("Store and index are consistent.")
	}
	return nil
}
