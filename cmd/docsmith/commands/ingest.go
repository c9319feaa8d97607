package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsmith-ai/docsmith/internal/ingestion"
	"github.com/docsmith-ai/docsmith/internal/logging"
)

// NewIngestCmd constructs the `docsmith ingest` command, which chunks,
// embeds and stores documents in the vector store.
func NewIngestCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest documents into the vector store",
		Long: `Ingest one or more documents into the Qdrant vector store.

Files ending in .pdf are processed page by page: the native text layer is
used when present, scanned pages go through OCR, and every page is
structured by the LLM before indexing. All other files are treated as
plain text. With no arguments (or "-"), text is read from stdin.

The source label defaults to each file's base name; --source overrides it
(only meaningful when ingesting a single document).

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: docsmith-docs)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: openai, azure, ollama
  EMBEDDING_*          Provider-specific overrides (see README)
  MODEL_PROVIDER       Chat backend used for structuring PDF pages

Examples:
  docsmith ingest report.pdf
  docsmith ingest notes.txt manual.md
  cat changelog.txt | docsmith ingest --source changelog.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if source != "" && len(args) > 1 {
				return fmt.Errorf("ingest: --source cannot be combined with multiple files")
			}

			needPDF := false
			for _, path := range args {
				if strings.EqualFold(filepath.Ext(path), ".pdf") {
					needPDF = true
				}
			}

			pipeline, cleanup, err := buildPipeline(ctx, log, needPDF)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer cleanup()

			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				return ingestStdin(cmd, pipeline, source, log)
			}

			total := 0
			for _, path := range args {
				label := source
				if label == "" {
					label = ingestion.InferSource(path)
				}

				var chunks int
				if strings.EqualFold(filepath.Ext(path), ".pdf") {
					chunks, err = pipeline.IngestPDF(ctx, path, label)
				} else {
					var data []byte
					data, err = os.ReadFile(path)
					if err == nil {
						chunks, err = pipeline.IngestRaw(ctx, string(data), label)
					}
				}
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				total += chunks
			}

			log.Info("ingestion complete", slog.Int("files", len(args)), slog.Int("chunks", total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source label for the ingested document (default: file base name)")

	return cmd
}

// ingestStdin reads the whole of stdin and ingests it as plain text.
func ingestStdin(cmd *cobra.Command, pipeline *ingestion.Pipeline, source string, log *slog.Logger) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("ingest: reading stdin: %w", err)
	}
	if source == "" {
		source = ingestion.StdinSource
	}
	chunks, err := pipeline.IngestRaw(cmd.Context(), string(data), source)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	log.Info("ingestion complete", slog.String("source", source), slog.Int("chunks", chunks))
	return nil
}
