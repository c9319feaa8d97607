package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// recordNamespace is the UUIDv5 namespace for deriving Qdrant point IDs from
// logical record IDs. Qdrant only accepts UUID or integer point IDs, so the
// "{source}_{index}" identity is hashed deterministically: the same logical
// ID always maps to the same point, which is what gives upserts their
// overwrite semantics.
var recordNamespace = uuid.MustParse("5e7a1c8e-9d42-4f6b-8f13-2a6cce1b8d04")

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. Must match the embedder's output dimension; a mismatch is
	// a configuration error, not something recoverable at runtime.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists with the configured dimension and cosine distance, and returns a
// ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Upsert stores or overwrites a batch of records with their embeddings.
// Records that share a logical ID with a prior upsert are replaced in place.
// Higher-index records left over from a longer prior version of the same
// source are NOT removed — callers that care track chunk counts separately.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("qdrant: %d records but %d embeddings", len(records), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, rec := range records {
		payload := map[string]interface{}{
			"id":     rec.ID(),
			"source": rec.Source,
			"chunk":  rec.ChunkIndex,
			"text":   rec.Text,
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(rec.ID())),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// BuildIndex ensures the payload index on the source field exists. Qdrant
// maintains its vector (HNSW) index automatically on upsert, so the explicit
// rebuild step reduces to the idempotent payload-index creation here.
func (s *QdrantStore) BuildIndex(ctx context.Context) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.cfg.Collection,
		FieldName:      "source",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("qdrant: index build failed: %w", err)
	}
	return nil
}

// Search performs a cosine similarity search and returns the topK results
// ranked ascending by cosine distance. Qdrant reports cosine similarity
// (higher = closer), so the score is converted to distance = 1 - similarity.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Hit, error) {
	limit := uint64(topK) //nolint:gosec // topK is a small positive request parameter
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	return hitsFromPoints(results), nil
}

// hitsFromPoints converts Qdrant scored points into Hits. Qdrant returns
// points ranked by similarity descending, so the converted hits come out
// ranked by cosine distance ascending.
func hitsFromPoints(points []*qdrant.ScoredPoint) []Hit {
	hits := make([]Hit, 0, len(points))
	for _, r := range points {
		hit := Hit{Distance: 1 - r.Score}
		if p := r.Payload; p != nil {
			if v, ok := p["id"]; ok {
				hit.ID = v.GetStringValue()
			}
			if v, ok := p["source"]; ok {
				hit.Source = v.GetStringValue()
			}
			if v, ok := p["chunk"]; ok {
				hit.ChunkIndex = int(v.GetIntegerValue())
			}
			if v, ok := p["text"]; ok {
				hit.Text = v.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

// Ping probes the Qdrant instance via its native health check RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointUUID derives the deterministic Qdrant point UUID for a logical record ID.
func pointUUID(recordID string) string {
	return uuid.NewSHA1(recordNamespace, []byte(recordID)).String()
}
