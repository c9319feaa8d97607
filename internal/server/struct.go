package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/docsmith-ai/docsmith/internal/answer"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps the size of PDF uploads (default: 32 MiB).
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
}

// ingester is the interface the ingest handlers call.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	IngestRaw(ctx context.Context, text, source string) (int, error)
	IngestPDFBytes(ctx context.Context, data []byte, source string) (int, error)
}

// asker is the interface handleAsk calls.
// *answer.Answerer satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, question string, topK int) (answer.Result, error)
}

// Server exposes ingestion and question answering over HTTP.
type Server struct {
	// ingester handles the document ingest endpoints.
	ingester ingester
	// asker handles the question answering endpoint.
	asker asker
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments registered for this instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// ingestRequest is the JSON body for POST /api/ingest.
type ingestRequest struct {
	// Text is the raw document text to ingest.
	Text string `json:"text"`
	// Source labels the document; chunk IDs are derived from it.
	Source string `json:"source"`
}

// ingestResponse is the JSON response for the ingest endpoints.
type ingestResponse struct {
	// Source is the label the chunks were stored under.
	Source string `json:"source"`
	// Chunks is the number of chunks written to the vector store.
	Chunks int `json:"chunks"`
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the natural language question.
	Question string `json:"question"`
	// TopK overrides the number of chunks retrieved (optional).
	TopK int `json:"topK,omitempty"`
}

// askSource describes one retrieved chunk backing an answer.
type askSource struct {
	// ID is the logical chunk identifier ("source_index").
	ID string `json:"id"`
	// Source is the document label the chunk came from.
	Source string `json:"source"`
	// Chunk is the chunk's index within its document.
	Chunk int `json:"chunk"`
	// Distance is the cosine distance to the question (lower is closer).
	Distance float32 `json:"distance"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	// Answer is the model's answer text.
	Answer string `json:"answer"`
	// Sources lists the retrieved chunks the answer was grounded on.
	Sources []askSource `json:"sources"`
}
