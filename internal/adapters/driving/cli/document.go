package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, inspect or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all live documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentStatusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show the last ingestion attempt for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentStatus,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Tombstones all versions of a document and removes its passages from retrieval.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentStatusCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	docs, err := adminService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		doc := &docs[i]
		cmd.Printf("  %s (v%d)\n", doc.ID, doc.Version)
		cmd.Printf("    Title: %s\n", doc.Title)
		if doc.Department != "" {
			cmd.Printf("    Department: %s\n", doc.Department)
		}
		if doc.DocType != "" {
			cmd.Printf("    Type: %s\n", doc.DocType)
		}
		cmd.Printf("    Uploaded: %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentStatus(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	job, err := ingestService.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("no ingestion recorded for %s", args[0])
	}

	cmd.Printf("Document: %s\n", job.DocumentID)
	cmd.Printf("  Version: %d\n", job.Version)
	cmd.Printf("  State:   %s\n", job.State)
	cmd.Printf("  Chunks:  %d\n", job.Chunks)
	if job.Reason != "" {
		cmd.Printf("  Reason:  %s\n", job.Reason)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	if err := adminService.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
