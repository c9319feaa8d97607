package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docsmith-ai/docsmith/internal/answer"
	"github.com/docsmith-ai/docsmith/internal/rag"
)

// fakeIngester records ingest calls and returns a fixed chunk count.
type fakeIngester struct {
	chunks     int
	err        error
	lastText   string
	lastData   []byte
	lastSource string
}

func (f *fakeIngester) IngestRaw(_ context.Context, text, source string) (int, error) {
	f.lastText = text
	f.lastSource = source
	return f.chunks, f.err
}

func (f *fakeIngester) IngestPDFBytes(_ context.Context, data []byte, source string) (int, error) {
	f.lastData = data
	f.lastSource = source
	return f.chunks, f.err
}

// fakeAsker returns a canned answer.
type fakeAsker struct {
	result       answer.Result
	err          error
	lastQuestion string
	lastTopK     int
}

func (f *fakeAsker) Ask(_ context.Context, question string, topK int) (answer.Result, error) {
	f.lastQuestion = question
	f.lastTopK = topK
	return f.result, f.err
}

// newTestServer builds a Server around the fakes with optional config tweaks.
func newTestServer(t *testing.T, ing ingester, ask asker, mutate func(*Config)) *Server {
	t.Helper()
	cfg := &Config{Logger: slog.New(slog.DiscardHandler)}
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(ing, ask, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:50000"
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleIngest(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{chunks: 3}
	s := newTestServer(t, ing, &fakeAsker{}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ingest",
		map[string]string{"text": "line one\nline two", "source": "notes.txt"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "notes.txt" || resp.Chunks != 3 {
		t.Errorf("resp = %+v", resp)
	}
	if ing.lastText != "line one\nline two" {
		t.Errorf("ingested text = %q", ing.lastText)
	}
}

func TestHandleIngestValidation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ingest", map[string]string{"source": "x"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing text: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader("{not json"))
	req.RemoteAddr = "10.0.0.1:50000"
	rec2 := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", rec2.Code)
	}
}

func TestHandleIngestDefaultSource(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{chunks: 1}
	s := newTestServer(t, ing, &fakeAsker{}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ingest", map[string]string{"text": "hello"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ing.lastSource != "stdin" {
		t.Errorf("source = %q, want stdin default", ing.lastSource)
	}
}

func TestHandleIngestError(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{err: errors.New("embedder down")}
	s := newTestServer(t, ing, &fakeAsker{}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ingest",
		map[string]string{"text": "x", "source": "s"}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleIngestPDF(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{chunks: 7}
	s := newTestServer(t, ing, &fakeAsker{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, "%PDF-1.7 fake"); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "10.0.0.1:50000"
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ing.lastSource != "report.pdf" {
		t.Errorf("source = %q, want inferred from upload filename", ing.lastSource)
	}
	if string(ing.lastData) != "%PDF-1.7 fake" {
		t.Errorf("uploaded bytes = %q", ing.lastData)
	}
}

func TestHandleIngestPDFMissingFile(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("source", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "10.0.0.1:50000"
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAsk(t *testing.T) {
	t.Parallel()
	ask := &fakeAsker{result: answer.Result{
		Answer: "42 euros.",
		Hits: []rag.Hit{
			{ID: "invoice.pdf_0", Source: "invoice.pdf", ChunkIndex: 0, Distance: 0.12},
		},
	}}
	s := newTestServer(t, &fakeIngester{}, ask, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ask",
		askRequest{Question: "What is the total?", TopK: 4}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "42 euros." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "invoice.pdf_0" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if ask.lastTopK != 4 {
		t.Errorf("topK = %d, want 4", ask.lastTopK)
	}
}

func TestHandleAskValidation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ask", askRequest{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty question: status = %d, want 400", rec.Code)
	}
}

func TestHandleAskError(t *testing.T) {
	t.Parallel()
	ask := &fakeAsker{err: errors.New("model unavailable")}
	s := newTestServer(t, &fakeIngester{}, ask, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ask", askRequest{Question: "q?"}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{chunks: 1}, &fakeAsker{}, nil)

	// drive one ingest so counters exist
	doJSON(t, s, http.MethodPost, "/api/ingest", map[string]string{"text": "x"}, nil)

	rec := doJSON(t, s, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "docsmith_ingest_requests_total") {
		t.Error("metrics output missing ingest counter")
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{chunks: 1}, &fakeAsker{}, func(c *Config) {
		c.APIKey = "secret-token"
	})

	// missing header
	rec := doJSON(t, s, http.MethodPost, "/api/ask", askRequest{Question: "q"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	// wrong token
	hdr := http.Header{"Authorization": []string{"Bearer wrong"}}
	rec = doJSON(t, s, http.MethodPost, "/api/ask", askRequest{Question: "q"}, hdr)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}

	// correct token
	hdr = http.Header{"Authorization": []string{"Bearer secret-token"}}
	rec = doJSON(t, s, http.MethodPost, "/api/ask", askRequest{Question: "q"}, hdr)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rec.Code)
	}

	// health stays unprotected
	rec = doJSON(t, s, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health with auth enabled: status = %d, want 200", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer  spaced ", "spaced"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{chunks: 1}, &fakeAsker{}, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 2
	})

	var limited bool
	for i := 0; i < 5; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/ingest",
			map[string]string{"text": "x"}, nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if got := rec.Header().Get("Retry-After"); got != "1" {
				t.Errorf("Retry-After = %q", got)
			}
			break
		}
	}
	if !limited {
		t.Error("burst of 5 requests against burst limit 2 was never rate limited")
	}
}

// okPinger and failPinger are readiness probe fakes.
type okPinger struct{ name string }

func (p okPinger) Ping(context.Context) error { return nil }
func (p okPinger) Name() string               { return p.name }

type failPinger struct{ name string }

func (p failPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }
func (p failPinger) Name() string               { return p.name }

func TestHandleReady(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, func(c *Config) {
		c.Pingers = []Pinger{okPinger{name: "qdrant"}, okPinger{name: "ollama"}}
	})

	rec := doJSON(t, s, http.MethodGet, "/api/ready", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleReadyFailure(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeIngester{}, &fakeAsker{}, func(c *Config) {
		c.Pingers = []Pinger{okPinger{name: "qdrant"}, failPinger{name: "ollama"}}
	})

	rec := doJSON(t, s, http.MethodGet, "/api/ready", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ready {
		t.Error("ready = true with a failing probe")
	}
	var found bool
	for _, c := range resp.Checks {
		if c.Name == "ollama" && !c.OK && c.Error != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("checks = %+v, want failing ollama entry", resp.Checks)
	}
}

func TestMultiPinger(t *testing.T) {
	t.Parallel()
	mp := NewMultiPinger(okPinger{name: "a"}, failPinger{name: "b"})
	err := mp.Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), "b:") {
		t.Errorf("err = %v, want failure attributed to b", err)
	}

	if err := NewMultiPinger(okPinger{name: "a"}).Ping(context.Background()); err != nil {
		t.Errorf("all-ok pinger returned %v", err)
	}
}
