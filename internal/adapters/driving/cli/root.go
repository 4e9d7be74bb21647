// Package cli implements the command-line driving adapter.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
	"github.com/SerialSamurai/BUTLER-NEW/internal/logger"
)

// version is the build version reported by the version command,
// injected by main at startup.
var version = "dev"

// Services are injected by main before Execute runs. Commands check for
// nil so a partially wired binary fails with a clear message.
var (
	ingestService driving.IngestService
	queryService  driving.QueryService
	adminService  driving.AdminService
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "butler",
	Short: "County document assistant",
	Long: `BUTLER is a document intelligence assistant for county government.
It ingests departmental documents, indexes them for semantic retrieval
and answers natural-language questions with ranked source passages.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the driving services. Must be called before
// Execute.
func SetServices(ingest driving.IngestService, query driving.QueryService, admin driving.AdminService) {
	ingestService = ingest
	queryService = query
	adminService = admin
}

// SetVersion overrides the build version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under ctx, so long-running
// commands stop when the process receives an interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
