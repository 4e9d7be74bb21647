// Package domain defines the core business entities for the BUTLER
// document intelligence retrieval engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested document with county metadata and a version
//   - Chunk: An offset-addressable passage, the unit of embedding and retrieval
//   - QueryOptions / QueryResult: The query contract
//   - IngestJob: The state of one ingestion attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
