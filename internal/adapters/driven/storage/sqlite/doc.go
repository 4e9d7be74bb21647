// Package sqlite provides the durable DocumentStore implementation.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and embedded at compile time.
//
// Documents are versioned: a re-upload of the same logical ID inserts a new
// (id, version) row and the prior version's chunks are tombstoned, never
// mutated. Chunks stay invisible to reads until their version is committed,
// which is what makes ingestion visibility atomic. Chunk embeddings are
// persisted as little-endian float32 BLOBs so the vector index can be
// reconciled or rebuilt from the store.
//
// # Data Location
//
// By default, the database is stored at ~/.butler/data/documents.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode. Serialisation of writers to the same
// document ID is owned by the ingestion pipeline.
package sqlite
