// Command butler is the county document assistant: it ingests
// departmental documents and answers natural-language questions with
// ranked source passages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/config/file"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/embedding"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/embedding/ollama"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/embedding/openai"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/storage/sqlite"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/vector/flat"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driving/cli"
	"github.com/SerialSamurai/BUTLER-NEW/internal/chunker"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/services"
	"github.com/SerialSamurai/BUTLER-NEW/internal/logger"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	index, err := flat.New(indexPath(cfg, store))
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	defer index.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	chunk, err := newChunker(cfg)
	if err != nil {
		return err
	}

	ingest := services.NewIngestPipeline(store, index, embedder, chunk)
	query := services.NewQueryEngine(store, index, embedder)
	admin := services.NewAdmin(store, index, embedder)
	admin.SetCompactRatio(cfg.GetFloat("index.compact_ratio"))

	// Reconcile store and index before serving anything; a crash between
	// index save and store commit leaves the two divergent.
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := admin.CheckConsistency(checkCtx); err != nil {
		logger.Warn("startup consistency check: %v", err)
	}
	cancel()

	cli.SetServices(ingest, query, admin)
	cli.SetVersion(version)
	return cli.ExecuteContext(ctx)
}

// indexPath resolves the vector index snapshot path, defaulting to a
// file alongside the SQLite database.
func indexPath(cfg driven.ConfigStore, store *sqlite.Store) string {
	if path := cfg.GetString("index.path"); path != "" {
		return path
	}
	return filepath.Join(filepath.Dir(store.Path()), "index.gob")
}

// newEmbedder builds the configured embedding service wrapped in a rate
// limiter. Ollama is the default provider; OpenAI needs an API key in
// the config or OPENAI_API_KEY.
func newEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	var (
		svc driven.EmbeddingService
		err error
	)

	switch provider := cfg.GetString("embedding.provider"); provider {
	case "", "ollama":
		svc = ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	case "openai":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		svc, err = openai.NewEmbeddingService(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("configuring embedder: %w", err)
	}

	return embedding.NewThrottled(svc, cfg.GetFloat("embedding.rate"), cfg.GetInt("embedding.burst")), nil
}

// newChunker builds the configured chunking strategy.
func newChunker(cfg driven.ConfigStore) (driven.Chunker, error) {
	name := cfg.GetString("chunking.strategy")
	if name == "" {
		name = "fixed"
	}
	size := cfg.GetInt("chunking.size")
	if size == 0 {
		size = chunker.DefaultMaxSize
	}
	overlap := cfg.GetInt("chunking.overlap")
	if overlap == 0 {
		overlap = chunker.DefaultOverlap
	}

	chunk, err := chunker.NewRegistry().Build(name, size, overlap)
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}
	return chunk, nil
}
