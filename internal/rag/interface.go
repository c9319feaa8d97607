// Package rag defines the interfaces for the retrieval side of docsmith:
// vector storage, embedding, and chunk retrieval. Concrete implementations
// (Qdrant, the OpenAI/Ollama embedders) satisfy these interfaces so the
// ingestion and answer pipelines never depend on a specific backend.
package rag

import (
	"context"
	"fmt"
)

// Record is one stored chunk of knowledge together with its identity.
// Its logical ID is derived from the source label and chunk position, so
// re-ingesting the same source overwrites the prior records in place.
type Record struct {
	// Source is the caller-supplied label for the originating document.
	Source string

	// ChunkIndex is the zero-based position of this chunk within the source.
	ChunkIndex int

	// Text is the raw chunk text.
	Text string
}

// ID returns the logical record identifier, "{source}_{index}".
func (r Record) ID() string {
	return fmt.Sprintf("%s_%d", r.Source, r.ChunkIndex)
}

// Hit is a single similarity-search result.
type Hit struct {
	// ID is the logical record identifier of the matched chunk.
	ID string

	// Distance is the cosine distance to the query (lower = more similar).
	Distance float32

	// Source is the source label stored with the chunk.
	Source string

	// ChunkIndex is the chunk position stored with the chunk.
	ChunkIndex int

	// Text is the chunk text stored with the chunk.
	Text string
}

// Embedder converts text into dense vector embeddings. Both methods must use
// the same model so stored and query vectors are comparable.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery converts a single query string into one embedding.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists and searches chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or overwrites a batch of records with their pre-computed
	// embeddings. The embeddings slice must be parallel to records.
	Upsert(ctx context.Context, records []Record, embeddings [][]float32) error

	// BuildIndex (re)builds the store's search index after an upsert batch.
	// Must run after Upsert and before the next query is expected to see the
	// new records.
	BuildIndex(ctx context.Context) error

	// Search returns the topK nearest records by cosine distance, ranked
	// ascending (most similar first).
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Hit, error)

	// Close releases any resources held by the store.
	Close() error
}

// Retriever fetches the chunks most relevant to a natural-language query.
// It combines query embedding and vector search.
type Retriever interface {
	// Retrieve returns the topK most relevant chunks for the query.
	Retrieve(ctx context.Context, query string, topK int) ([]Hit, error)
}
