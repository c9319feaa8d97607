// Package answer runs retrieval-augmented question answering: embed the
// question, fetch the closest chunks, and let the chat model answer from
// that context alone.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docsmith-ai/docsmith/internal/budget"
	"github.com/docsmith-ai/docsmith/internal/rag"
)

const (
	// ContextDelimiter separates retrieved chunks inside the prompt.
	ContextDelimiter = "\n\n---\n\n"
	// DefaultTemperature keeps answers close to the provided context.
	DefaultTemperature float32 = 0.2
	// DefaultLanguage is used when no answer language is configured.
	DefaultLanguage = "English"
)

const answerPrompt = `Answer the question using ONLY the context below.
If the context does not contain the answer, say that you do not know.
Do not invent facts that are not in the context.

CONTEXT:
%s

QUESTION:
%s`

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

// Generator is the chat model surface the answerer needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config wires an answerer together. MaxContextTokens of zero disables
// context trimming.
type Config struct {
	Retriever        rag.Retriever
	Model            Generator
	Language         string
	Temperature      float32
	MaxContextTokens int
	Logger           *slog.Logger
}

// Answerer ties retrieval and generation together.
type Answerer struct {
	retriever   rag.Retriever
	model       Generator
	language    string
	temperature float32
	maxTokens   int
	log         *slog.Logger
}

// Result is an answer together with the chunks it was grounded on.
type Result struct {
	Answer string
	Hits   []rag.Hit
}

func New(cfg Config) (*Answerer, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("answer: retriever is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("answer: chat model is required")
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Answerer{
		retriever:   cfg.Retriever,
		model:       cfg.Model,
		language:    cfg.Language,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxContextTokens,
		log:         cfg.Logger,
	}, nil
}

// Ask answers a question from the ingested corpus. topK of zero or less
// uses the retriever's default.
func (a *Answerer) Ask(ctx context.Context, question string, topK int) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, ErrEmptyQuestion
	}

	hits, err := a.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return Result{}, fmt.Errorf("retrieving context: %w", err)
	}
	if a.maxTokens > 0 {
		trimmed := budget.Trim(hits, a.maxTokens)
		if len(trimmed) < len(hits) {
			a.log.Debug("trimmed retrieved context",
				"kept", len(trimmed), "dropped", len(hits)-len(trimmed), "budget", a.maxTokens)
		}
		hits = trimmed
	}

	msgs := []*schema.Message{
		schema.SystemMessage(a.systemInstruction()),
		schema.UserMessage(fmt.Sprintf(answerPrompt, BuildContext(hits), question)),
	}
	reply, err := a.model.Generate(ctx, msgs, model.WithTemperature(a.temperature))
	if err != nil {
		return Result{}, fmt.Errorf("generating answer: %w", err)
	}
	return Result{Answer: reply.Content, Hits: hits}, nil
}

func (a *Answerer) systemInstruction() string {
	return fmt.Sprintf(
		"You are a careful assistant answering questions about ingested documents. Answer in %s.",
		a.language)
}

// BuildContext joins retrieved chunks into the prompt context block,
// best-ranked first.
func BuildContext(hits []rag.Hit) string {
	if len(hits) == 0 {
		return "(no relevant context found)"
	}
	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Text
	}
	return strings.Join(texts, ContextDelimiter)
}
