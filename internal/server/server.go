// Package server implements the HTTP server that exposes document ingestion
// and question answering via a REST API.
// The server is started by the `docsmith serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docsmith-ai/docsmith/internal/answer"
	"github.com/docsmith-ai/docsmith/internal/ingestion"
	"github.com/docsmith-ai/docsmith/internal/logging"
)

// defaultMaxUploadBytes caps PDF uploads at 32 MiB.
const defaultMaxUploadBytes = 32 << 20

// New constructs a Server from the provided pipeline, answerer and config.
func New(ing ingester, ask asker, cfg *Config) (*Server, error) {
	if ing == nil {
		return nil, fmt.Errorf("server: ingester must not be nil")
	}
	if ask == nil {
		return nil, fmt.Errorf("server: asker must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Ingest and ask both wait on LLM backends.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.APIKey == "" {
		log.Warn("server: DOCSMITH_API_KEY not set — API authentication is disabled")
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		ingester: ing,
		asker:    ask,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	protect := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/ingest", protect("ingest", s.handleIngest))
	mux.Handle("POST /api/ingest/pdf", protect("ingest_pdf", s.handleIngestPDF))
	mux.Handle("POST /api/ask", protect("ask", s.handleAsk))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("docsmith server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleIngest handles POST /api/ingest: chunk, embed and store raw text.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = ingestion.StdinSource
	}

	chunks, err := s.ingester.IngestRaw(r.Context(), req.Text, req.Source)
	s.finishIngest(w, r, req.Source, chunks, time.Since(start), err)
}

// handleIngestPDF handles POST /api/ingest/pdf: multipart upload of a PDF
// under the "file" form field, with an optional "source" field.
func (s *Server) handleIngestPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = ingestion.InferSource(header.Filename)
	}

	chunks, err := s.ingester.IngestPDFBytes(r.Context(), data, source)
	s.finishIngest(w, r, source, chunks, time.Since(start), err)
}

// finishIngest records metrics and writes the shared ingest response.
func (s *Server) finishIngest(w http.ResponseWriter, r *http.Request, source string, chunks int, elapsed time.Duration, err error) {
	log := logging.FromContext(r.Context())
	if err != nil {
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeError).Inc()
		s.metrics.ingestDurationSeconds.WithLabelValues(outcomeError).Observe(elapsed.Seconds())
		log.Error("ingest failed", slog.String("source", source), slog.Any("error", err))
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		return
	}
	s.metrics.ingestRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.ingestDurationSeconds.WithLabelValues(outcomeOK).Observe(elapsed.Seconds())
	s.metrics.ingestChunksTotal.Add(float64(chunks))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ingestResponse{Source: source, Chunks: chunks}); err != nil {
		log.Error("ingest encode error", slog.Any("error", err))
	}
}

// handleAsk handles POST /api/ask requests.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	result, err := s.asker.Ask(r.Context(), req.Question, req.TopK)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, answer.ErrEmptyQuestion) {
			http.Error(w, "question is required", http.StatusBadRequest)
			return
		}
		s.metrics.askRequestsTotal.WithLabelValues(outcomeError).Inc()
		s.metrics.askDurationSeconds.WithLabelValues(outcomeError).Observe(elapsed.Seconds())
		log.Error("ask failed", slog.Any("error", err))
		http.Error(w, "failed to answer question", http.StatusInternalServerError)
		return
	}
	s.metrics.askRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcomeOK).Observe(elapsed.Seconds())

	resp := askResponse{Answer: result.Answer, Sources: make([]askSource, len(result.Hits))}
	for i, hit := range result.Hits {
		resp.Sources[i] = askSource{
			ID:       hit.ID,
			Source:   hit.Source,
			Chunk:    hit.ChunkIndex,
			Distance: hit.Distance,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("ask encode error", slog.Any("error", err))
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
