package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/SerialSamurai/BUTLER-NEW/internal/watcher"
)

var (
	watchDepartment string
	watchDocType    string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a drop directory and ingest new files",
	Long: `Watches a directory and ingests text files dropped into it. Files
already present are ingested at startup. Overwriting a file supersedes
its prior version. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDepartment, "department", "d", "", "department tag for ingested files")
	watchCmd.Flags().StringVar(&watchDocType, "type", "", "document type tag for ingested files")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	w, err := watcher.New(ingestService, args[0], watchDepartment, watchDocType)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
	err = w.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
