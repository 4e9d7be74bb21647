package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

var (
	ingestID         string
	ingestTitle      string
	ingestDepartment string
	ingestDocType    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the corpus",
	Long: `Ingests one extracted-text document: the content is chunked, embedded
and indexed, then committed as a new version.

Re-ingesting with the same --id supersedes the prior version; queries
see either the old version or the new one, never a mixture.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "logical document ID (default: derived from filename)")
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (default: filename)")
	ingestCmd.Flags().StringVarP(&ingestDepartment, "department", "d", "", "owning department")
	ingestCmd.Flags().StringVar(&ingestDocType, "type", "", "document type (policy, procedural, form, ...)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	req := ingestRequestForFile(path, string(content))
	job, err := ingestService.Ingest(cmd.Context(), req)
	if err != nil {
		if job != nil && job.Reason != "" {
			return fmt.Errorf("ingestion failed: %s", job.Reason)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested %s\n", req.Title)
	cmd.Printf("  ID:      %s\n", job.DocumentID)
	cmd.Printf("  Version: %d\n", job.Version)
	cmd.Printf("  Chunks:  %d\n", job.Chunks)
	return nil
}

// ingestRequestForFile builds the request, deriving the ID and title
// from the filename when flags leave them unset. The derived ID is
// stable so re-ingesting the same file supersedes the prior version.
func ingestRequestForFile(path, content string) domain.IngestRequest {
	filename := filepath.Base(path)
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	id := ingestID
	if id == "" {
		id = base
	}
	title := ingestTitle
	if title == "" {
		title = base
	}

	return domain.IngestRequest{
		DocumentID: id,
		Title:      title,
		Filename:   filename,
		Department: ingestDepartment,
		DocType:    ingestDocType,
		Content:    content,
	}
}
