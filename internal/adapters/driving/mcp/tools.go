package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// QueryInput is the input schema for the query_documents tool.
type QueryInput struct {
	Query      string `json:"query" jsonschema:"the natural-language question to answer"`
	Department string `json:"department,omitempty" jsonschema:"restrict results to one county department"`
	DocType    string `json:"doc_type,omitempty" jsonschema:"restrict results to one document type"`
	K          int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// QueryOutput is the output schema for the query_documents tool.
type QueryOutput struct {
	Results []QueryResultOutput `json:"results"`
	Count   int                 `json:"count"`
}

// QueryResultOutput represents a single ranked passage.
type QueryResultOutput struct {
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title"`
	Department  string  `json:"department,omitempty"`
	DocType     string  `json:"doc_type,omitempty"`
	Version     int     `json:"version"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
}

// ListInput is the input schema for the list_documents tool.
type ListInput struct{}

// ListOutput is the output schema for the list_documents tool.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents one live document.
type DocumentOutput struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Department string `json:"department,omitempty"`
	DocType    string `json:"doc_type,omitempty"`
	Version    int    `json:"version"`
	UploadedAt string `json:"uploaded_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question from the county document corpus with ranked source passages",
	}, s.handleQuery)

	if s.ports.Admin != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the ingested county documents",
		}, s.handleList)
	}
}

// handleQuery handles the query_documents tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := domain.QueryOptions{
		Department: input.Department,
		DocType:    input.DocType,
		K:          input.K,
	}

	results, err := s.ports.Query.Query(ctx, input.Query, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Results: make([]QueryResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = QueryResultOutput{
			DocumentID:  results[i].DocumentID,
			Title:       results[i].Title,
			Department:  results[i].Department,
			DocType:     results[i].DocType,
			Version:     results[i].Version,
			Score:       results[i].Score,
			Snippet:     results[i].Snippet,
			StartOffset: results[i].StartOffset,
			EndOffset:   results[i].EndOffset,
		}
	}

	return nil, output, nil
}

// handleList handles the list_documents tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.Admin.ListDocuments(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentOutput{
			ID:         docs[i].ID,
			Title:      docs[i].Title,
			Department: docs[i].Department,
			DocType:    docs[i].DocType,
			Version:    docs[i].Version,
			UploadedAt: docs[i].UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	return nil, output, nil
}
