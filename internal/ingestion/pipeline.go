// Package ingestion chunks documents, embeds the chunks and writes them to
// the vector store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docsmith-ai/docsmith/internal/chunker"
	"github.com/docsmith-ai/docsmith/internal/rag"
	"github.com/docsmith-ai/docsmith/internal/store"
)

// Config wires a pipeline together. Ledger is optional; without it the
// staleness warning on re-ingest is skipped. Extractor is only needed for
// the PDF ingest paths.
type Config struct {
	Embedder  rag.Embedder
	Vectors   rag.VectorStore
	Ledger    *store.Store
	Extractor Extractor
	MaxChars  int
	Logger    *slog.Logger
}

// Pipeline is the ingest path shared by the CLI and the HTTP server.
type Pipeline struct {
	embedder  rag.Embedder
	vectors   rag.VectorStore
	ledger    *store.Store
	extractor Extractor
	maxChars  int
	log       *slog.Logger
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("ingestion: embedder is required")
	}
	if cfg.Vectors == nil {
		return nil, errors.New("ingestion: vector store is required")
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = chunker.DefaultMaxChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		embedder:  cfg.Embedder,
		vectors:   cfg.Vectors,
		ledger:    cfg.Ledger,
		extractor: cfg.Extractor,
		maxChars:  cfg.MaxChars,
		log:       cfg.Logger,
	}, nil
}

// IngestRaw splits plain text into chunks and ingests them under source.
// It returns the number of chunks written. Empty input is a no-op.
func (p *Pipeline) IngestRaw(ctx context.Context, text, source string) (int, error) {
	chunks := chunker.Split(text, p.maxChars)
	return p.ingestChunks(ctx, chunks, source)
}

// ingestChunks is the shared tail of every ingest path: embed, upsert,
// build the payload index, update the ledger.
func (p *Pipeline) ingestChunks(ctx context.Context, chunks []string, source string) (int, error) {
	if len(chunks) == 0 {
		p.log.Info("nothing to ingest", "source", source)
		return 0, nil
	}

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks from %s: %w", len(chunks), source, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	records := make([]rag.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = rag.Record{Source: source, ChunkIndex: i, Text: chunk}
	}

	if err := p.vectors.Upsert(ctx, records, embeddings); err != nil {
		return 0, fmt.Errorf("upserting %d records from %s: %w", len(records), source, err)
	}
	if err := p.vectors.BuildIndex(ctx); err != nil {
		return 0, fmt.Errorf("building index after ingesting %s: %w", source, err)
	}

	p.recordLedger(ctx, source, len(chunks))
	p.log.Info("ingested source", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// recordLedger updates the ingest ledger and warns when a source shrank.
// An overwrite with fewer chunks leaves the old higher-numbered chunks in
// the vector store, so answers may cite stale text until a full re-ingest.
func (p *Pipeline) recordLedger(ctx context.Context, source string, chunkCount int) {
	if p.ledger == nil {
		return
	}
	prev, found, err := p.ledger.LastChunkCount(ctx, source)
	if err != nil {
		p.log.Warn("ledger lookup failed", "source", source, "error", err)
	} else if found && chunkCount < prev {
		p.log.Warn("source re-ingested with fewer chunks, stale chunks remain in the index",
			"source", source, "previous", prev, "current", chunkCount)
	}
	if err := p.ledger.RecordIngest(ctx, source, chunkCount); err != nil {
		p.log.Warn("ledger update failed", "source", source, "error", err)
	}
}
