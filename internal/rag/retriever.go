package rag

import (
	"context"
	"fmt"
)

// DefaultTopK is the number of results retrieved when the caller passes 0.
// A larger k favours richer context over precision; the answer pipeline
// trims the tail again if the prompt budget demands it.
const DefaultTopK = 10

// DefaultRetriever implements Retriever by combining an Embedder and a
// VectorStore. It embeds the query at retrieval time and delegates
// similarity search to the store.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a DefaultRetriever from the given Embedder and
// VectorStore. defaultTopK sets the fallback result count for Retrieve calls
// with topK=0; if non-positive, DefaultTopK is used.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &DefaultRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the topK nearest chunks ranked by
// ascending cosine distance. If topK is 0 the configured default is used.
// Embedding or search failures propagate to the caller unretried.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}

	hits, err := r.store.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	return hits, nil
}
