package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

var (
	queryDepartment string
	queryDocType    string
	queryK          int
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query the corpus",
	Long: `Answers a natural-language question with ranked source passages.
Results are ordered by semantic similarity; each carries the document
title, department, type and the passage's exact source offsets.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryDepartment, "department", "d", "", "restrict to one department")
	queryCmd.Flags().StringVar(&queryDocType, "type", "", "restrict to one document type")
	queryCmd.Flags().IntVarP(&queryK, "top", "k", 0, "number of results (default 5)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	opts := domain.QueryOptions{
		Department: queryDepartment,
		DocType:    queryDocType,
		K:          queryK,
	}

	results, err := queryService.Query(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryText(cmd, results)
}

func outputQueryJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, results []domain.QueryResult) error {
	if len(results) == 0 {
		cmd.Println("No relevant passages found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.Title, r.Score)
		if r.Department != "" || r.DocType != "" {
			cmd.Printf("      %s / %s, v%d, chars %d-%d\n",
				r.Department, r.DocType, r.Version, r.StartOffset, r.EndOffset)
		} else {
			cmd.Printf("      v%d, chars %d-%d\n", r.Version, r.StartOffset, r.EndOffset)
		}
		cmd.Printf("      %s\n", r.Snippet)
		cmd.Println()
	}
	return nil
}
