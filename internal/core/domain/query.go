package domain

// QueryOptions configures a retrieval query. Query objects are
// request-scoped; they carry no persisted identity.
type QueryOptions struct {
	// Department filters results to one department when non-empty.
	Department string

	// DocType filters results to one document type when non-empty.
	DocType string

	// K is the maximum number of results. Zero means the default (5);
	// values above the configured maximum are clamped, not rejected.
	K int
}

// Filtered reports whether any metadata filter is set.
func (o QueryOptions) Filtered() bool {
	return o.Department != "" || o.DocType != ""
}

// QueryResult is a single ranked passage returned by the query engine.
type QueryResult struct {
	// ChunkID identifies the matched passage.
	ChunkID string

	// DocumentID is the owning document.
	DocumentID string

	// Title is the document title.
	Title string

	// Department and DocType are the document's metadata tags.
	Department string
	DocType    string

	// Version is the document version the passage belongs to.
	Version int

	// Score is the cosine similarity in [0, 1], highest first.
	Score float64

	// Snippet is the passage text, truncated for display.
	Snippet string

	// StartOffset and EndOffset locate the passage in the source text.
	StartOffset int
	EndOffset   int
}
