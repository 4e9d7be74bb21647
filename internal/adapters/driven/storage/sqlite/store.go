package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is the SQLite-backed DocumentStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.butler/data/documents.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".butler", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "documents.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveDocument stores a document version record, initially uncommitted.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshalling metadata: %w", domain.ErrStoreWrite, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, version, title, filename, department, doc_type, uploaded_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Version, doc.Title, doc.Filename, doc.Department, doc.DocType,
		doc.UploadedAt, string(metadataJSON))

	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// NextVersion returns the next version number for a logical ID.
func (s *Store) NextVersion(ctx context.Context, documentID string) (int, error) {
	var current int
	row := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM documents WHERE id = ?", documentID)
	if err := row.Scan(&current); err != nil {
		return 0, fmt.Errorf("querying version: %w", err)
	}
	return current + 1, nil
}

// SaveChunks stores all chunks of one document version in a single
// transaction. The chunks remain hidden until CommitVersion.
func (s *Store) SaveChunks(ctx context.Context, documentID string, version int, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, version, position, start_offset, end_offset, content, overlap, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrStoreWrite, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, documentID, version, chunk.Position,
			chunk.StartOffset, chunk.EndOffset, chunk.Content, chunk.Overlap, embeddingBlob); err != nil {
			return fmt.Errorf("%w: saving chunk: %w", domain.ErrStoreWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// CommitVersion atomically makes a version's chunks visible.
func (s *Store) CommitVersion(ctx context.Context, documentID string, version int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET committed = 1 WHERE id = ? AND version = ?", documentID, version)
	if err != nil {
		return fmt.Errorf("%w: committing version: %w", domain.ErrStoreWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("committing version: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDocument retrieves the latest committed, live version of a document.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, version, title, filename, department, doc_type, uploaded_at, metadata
		FROM documents
		WHERE id = ? AND committed = 1 AND tombstoned = 0
		ORDER BY version DESC LIMIT 1
	`, id)

	return scanDocument(row)
}

// GetChunk retrieves a committed, live chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.document_id, c.version, c.position, c.start_offset, c.end_offset,
		       c.content, c.overlap, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.version = c.version
		WHERE c.id = ? AND c.tombstoned = 0 AND d.committed = 1 AND d.tombstoned = 0
	`, id)

	return scanChunkRow(row)
}

// GetChunks retrieves the live chunks of one document version, ordered
// by position.
func (s *Store) GetChunks(ctx context.Context, documentID string, version int) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.version, c.position, c.start_offset, c.end_offset,
		       c.content, c.overlap, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.version = c.version
		WHERE c.document_id = ? AND c.version = ? AND c.tombstoned = 0
		  AND d.committed = 1 AND d.tombstoned = 0
		ORDER BY c.position
	`, documentID, version)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// TombstoneDocument marks all chunks of all versions of a document
// unavailable. Idempotent.
func (s *Store) TombstoneDocument(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET tombstoned = 1 WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("%w: tombstoning document: %w", domain.ErrStoreWrite, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE chunks SET tombstoned = 1 WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: tombstoning chunks: %w", domain.ErrStoreWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// TombstoneVersion marks one version's chunks unavailable. Idempotent.
func (s *Store) TombstoneVersion(ctx context.Context, documentID string, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET tombstoned = 1 WHERE id = ? AND version = ?",
		documentID, version); err != nil {
		return fmt.Errorf("%w: tombstoning version: %w", domain.ErrStoreWrite, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE chunks SET tombstoned = 1 WHERE document_id = ? AND version = ?",
		documentID, version); err != nil {
		return fmt.Errorf("%w: tombstoning chunks: %w", domain.ErrStoreWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// DeleteVersion physically removes one version's records. Used only to
// roll back a failed, never-committed ingestion attempt.
func (s *Store) DeleteVersion(ctx context.Context, documentID string, version int) error {
	// Chunks are removed by the ON DELETE CASCADE foreign key.
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ? AND version = ?", documentID, version)
	if err != nil {
		return fmt.Errorf("deleting version: %w", err)
	}
	return nil
}

// ListDocuments returns the latest committed version of every live
// document.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, title, filename, department, doc_type, uploaded_at, metadata
		FROM documents
		WHERE committed = 1 AND tombstoned = 0
		  AND version = (
			SELECT MAX(version) FROM documents d2
			WHERE d2.id = documents.id AND d2.committed = 1 AND d2.tombstoned = 0
		  )
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// LiveChunks returns every committed, live chunk across all documents.
func (s *Store) LiveChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.version, c.position, c.start_offset, c.end_offset,
		       c.content, c.overlap, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.version = c.version
		WHERE c.tombstoned = 0 AND d.committed = 1 AND d.tombstoned = 0
		ORDER BY c.document_id, c.version, c.position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying live chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// UpdateChunkEmbeddings replaces the stored embeddings of existing
// chunks, matched by chunk ID.
func (s *Store) UpdateChunkEmbeddings(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "UPDATE chunks SET embedding = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrStoreWrite, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, float32SliceToBytes(chunk.Embedding), chunk.ID); err != nil {
			return fmt.Errorf("%w: updating embedding: %w", domain.ErrStoreWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a document from a *sql.Row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	doc, err := scanDocumentFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	return scanDocumentFrom(rows)
}

func scanDocumentFrom(sc scanner) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string

	if err := sc.Scan(&doc.ID, &doc.Version, &doc.Title, &doc.Filename,
		&doc.Department, &doc.DocType, &doc.UploadedAt, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON != "" && metadataJSON != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanChunkRow scans a chunk from a *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	chunk, err := scanChunkFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return chunk, err
}

func scanChunkFrom(sc scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte

	if err := sc.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Version, &chunk.Position,
		&chunk.StartOffset, &chunk.EndOffset, &chunk.Content, &chunk.Overlap,
		&embeddingBlob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// collectChunks drains rows into a chunk slice.
func collectChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunkFrom(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
