package domain

import "time"

// Document represents an ingested document with county metadata.
// It is the canonical representation after text extraction, which is
// performed by an external collaborator before ingestion.
type Document struct {
	// ID is the stable logical identifier, assigned at first ingestion.
	ID string

	// Title is the human-readable title.
	Title string

	// Filename is the original uploaded filename.
	Filename string

	// Department is the owning county department (free-form, e.g. "HR").
	Department string

	// DocType classifies the document ("policy", "procedural", "form", ...).
	DocType string

	// Version is the ingestion version, starting at 1 and incremented on
	// each re-upload of the same logical ID. Prior versions are tombstoned,
	// never mutated.
	Version int

	// UploadedAt is when this version was ingested.
	UploadedAt time.Time

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any
}

// Chunk represents a retrievable passage within one document version.
// Chunks are immutable once created; a re-upload produces new chunks
// under a new version.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Version is the document version this chunk belongs to.
	Version int

	// Position is the ordinal position within the document.
	Position int

	// StartOffset and EndOffset are character offsets into the extracted
	// source text, kept exact for provenance display.
	StartOffset int
	EndOffset   int

	// Content is the literal text slice [StartOffset:EndOffset).
	Content string

	// Overlap marks whether this chunk repeats tail text from its
	// predecessor.
	Overlap bool

	// Embedding is the vector representation, populated during ingestion.
	Embedding []float32
}

// IngestRequest describes one document handed to the ingestion pipeline.
// Content is extracted plain text supplied by the extraction collaborator.
type IngestRequest struct {
	// DocumentID is the logical ID. Empty means assign a new one.
	DocumentID string

	Title      string
	Filename   string
	Department string
	DocType    string
	Content    string
	Metadata   map[string]any
}

// IngestState tracks the progress of an ingestion job.
type IngestState string

// Ingestion job states. Failed is terminal and reachable from any
// non-terminal state; Committed is the only state in which the new
// version is visible to queries.
const (
	IngestStateReceived  IngestState = "received"
	IngestStateChunked   IngestState = "chunked"
	IngestStateEmbedded  IngestState = "embedded"
	IngestStateIndexed   IngestState = "indexed"
	IngestStateCommitted IngestState = "committed"
	IngestStateFailed    IngestState = "failed"
)

// IngestJob reports the state of one ingestion attempt.
type IngestJob struct {
	// DocumentID is the logical document being ingested.
	DocumentID string

	// Version is the version this attempt is writing.
	Version int

	// State is the current pipeline state.
	State IngestState

	// Chunks is the number of chunks produced so far.
	Chunks int

	// Reason is the failure reason when State is Failed.
	Reason string
}
