package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/docsmith-ai/docsmith/internal/embedder"
	"github.com/docsmith-ai/docsmith/internal/extract"
	"github.com/docsmith-ai/docsmith/internal/ingestion"
	"github.com/docsmith-ai/docsmith/internal/provider"
	"github.com/docsmith-ai/docsmith/internal/rag"
	"github.com/docsmith-ai/docsmith/internal/store"
	"github.com/docsmith-ai/docsmith/internal/structurer"
)

// buildVectorStore connects to Qdrant using the QDRANT_* environment
// variables. The vector size follows the configured embedding backend unless
// EMBEDDING_DIMENSIONS overrides it.
func buildVectorStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "docsmith-docs")
	vectorSize := getEnvInt("EMBEDDING_DIMENSIONS", embedder.DefaultDimensions(embedder.ResolveBackend()))

	qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: uint64(vectorSize), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
	return qs, nil
}

// openLedger opens the local ingest ledger. DOCSMITH_LEDGER_DB overrides the
// default path (~/.docsmith/ledger.db); set to "disabled" to skip the ledger.
// A ledger failure is never fatal — ingestion works without it.
func openLedger(log *slog.Logger) *store.Store {
	dbPath := os.Getenv("DOCSMITH_LEDGER_DB")
	if dbPath == "disabled" {
		log.Info("ledger: disabled via DOCSMITH_LEDGER_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultPath()
		if err != nil {
			log.Warn("ledger: could not resolve default path, disabling", slog.Any("error", err))
			return nil
		}
	}
	ledger, err := store.Open(dbPath)
	if err != nil {
		log.Warn("ledger: failed to open, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("ledger: opened", slog.String("path", dbPath))
	return ledger
}

// buildExtractor constructs the PDF extraction adapter: chat-model backed
// structuring plus a lazily started Tesseract engine for scanned pages.
// OCR_LANGUAGES selects Tesseract language codes (comma-separated).
func buildExtractor(ctx context.Context, log *slog.Logger) (*extract.Adapter, error) {
	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	docStructurer, err := structurer.New(chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise structurer: %w", err)
	}
	newOCR := func() (extract.OCREngine, error) {
		return extract.NewTesseract(ocrLanguages()...)
	}
	return extract.NewAdapter(docStructurer, newOCR, log)
}

// buildPipeline wires embedder, vector store, ledger and (optionally) the
// PDF extractor into an ingestion pipeline. The returned cleanup closes the
// underlying connections.
func buildPipeline(ctx context.Context, log *slog.Logger, withExtractor bool) (*ingestion.Pipeline, func(), error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", embedder.ResolveBackend()))

	qs, err := buildVectorStore(ctx, log)
	if err != nil {
		return nil, nil, err
	}

	ledger := openLedger(log)

	var extractor ingestion.Extractor
	if withExtractor {
		adapter, err := buildExtractor(ctx, log)
		if err != nil {
			qs.Close()
			if ledger != nil {
				ledger.Close()
			}
			return nil, nil, err
		}
		extractor = adapter
	}

	pipeline, err := ingestion.NewPipeline(ingestion.Config{
		Embedder:  emb,
		Vectors:   qs,
		Ledger:    ledger,
		Extractor: extractor,
		MaxChars:  getEnvInt("CHUNK_MAX_CHARS", 0),
		Logger:    log,
	})
	if err != nil {
		qs.Close()
		if ledger != nil {
			ledger.Close()
		}
		return nil, nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	cleanup := func() {
		qs.Close()
		if ledger != nil {
			ledger.Close()
		}
	}
	return pipeline, cleanup, nil
}

// ocrLanguages parses OCR_LANGUAGES into Tesseract language codes.
func ocrLanguages() []string {
	raw := os.Getenv("OCR_LANGUAGES")
	if raw == "" {
		return nil
	}
	var langs []string
	for _, lang := range strings.Split(raw, ",") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

// getEnvOrDefault returns the env value or fallback when unset/empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer env value or fallback when unset or invalid.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
