// Package services contains the core business logic for the retrieval
// engine: the ingestion pipeline, the query engine and corpus
// administration. Services depend only on ports, never on adapters.
package services
