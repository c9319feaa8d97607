package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docsmith-ai/docsmith/internal/answer"
	"github.com/docsmith-ai/docsmith/internal/embedder"
	"github.com/docsmith-ai/docsmith/internal/extract"
	"github.com/docsmith-ai/docsmith/internal/ingestion"
	"github.com/docsmith-ai/docsmith/internal/logging"
	"github.com/docsmith-ai/docsmith/internal/provider"
	"github.com/docsmith-ai/docsmith/internal/rag"
	"github.com/docsmith-ai/docsmith/internal/server"
	"github.com/docsmith-ai/docsmith/internal/structurer"
	"github.com/docsmith-ai/docsmith/internal/tracing"
)

// NewServeCmd constructs the `docsmith serve` command, which starts the
// HTTP server exposing ingestion and question answering.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docsmith HTTP server",
		Long: `Start the docsmith HTTP server on localhost.

The server exposes a REST API:
  POST /api/ingest       ingest raw text
  POST /api/ingest/pdf   ingest an uploaded PDF (multipart, field "file")
  POST /api/ask          answer a question from the ingested corpus
  GET  /api/health       liveness check
  GET  /api/ready        readiness check (probes Qdrant and the LLM backend)
  GET  /metrics          Prometheus metrics

Set DOCSMITH_API_KEY to require Bearer token authentication on /api/* routes.

Examples:
  docsmith serve
  docsmith serve --port 9090
  MODEL_PROVIDER=azure docsmith serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			qs, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer qs.Close()

			ledger := openLedger(log)
			if ledger != nil {
				defer ledger.Close()
			}

			docStructurer, err := structurer.New(chatModel)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise structurer: %w", err)
			}
			extractor, err := extract.NewAdapter(docStructurer, func() (extract.OCREngine, error) {
				return extract.NewTesseract(ocrLanguages()...)
			}, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
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
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			retriever, err := rag.NewRetriever(emb, qs, getEnvInt("ANSWER_TOP_K", 0))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			answerer, err := answer.New(answer.Config{
				Retriever:        retriever,
				Model:            chatModel,
				Language:         os.Getenv("ANSWER_LANGUAGE"),
				MaxContextTokens: getEnvInt("ANSWER_CONTEXT_TOKENS", 0),
				Logger:           log,
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(qs),
				server.NewLLMPinger(chatModel, string(providerCfg.Backend)),
			}

			srv, err := server.New(pipeline, answerer, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("DOCSMITH_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("SERVER_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("SERVER_PORT", 8080), "TCP port to listen on")

	return cmd
}
