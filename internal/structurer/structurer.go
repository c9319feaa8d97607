package structurer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// systemInstruction pins the model to machine-readable output. The brace-span
// recovery in ExtractJSON still tolerates models that ignore it.
const systemInstruction = "Return ONLY valid JSON without explanation, markdown or comments."

// structurePrompt is the user-message template carrying the target schema and
// the extraction rules. The %s placeholder receives the raw page text.
const structurePrompt = `You are a document structuring system.
The content is an arbitrary extracted or OCR document.
Your job is to convert it into a universal JSON format that works for ANY
document type (letters, contracts, invoices, articles, etc.) without assuming
a fixed schema.

The JSON MUST contain ONLY these top-level keys:

{
  "document_type": "",
  "title": "",
  "sections": [{"title": "", "content": ""}],
  "tables": [{"title": "", "headers": [], "rows": [[]]}],
  "entities": {
    "dates": [],
    "names": [],
    "locations": [],
    "organizations": [],
    "amounts": []
  },
  "key_value_pairs": {}
}

Rules:
- Detect the document type heuristically. Examples include: invoice, receipt,
  contract, legal letter, academic article, form, notice, report, business
  letter, manual, etc. Do NOT force any specific type. If uncertain, use "unknown".
- Split text into logical sections by meaning, not by formatting.
- Extract entities (NER-like) into the five fixed categories.
- If text includes something like 'X: Y', treat it as a key-value pair.
  All key_value_pairs values must be strings.
- If a table-like structure exists, convert it into rows and columns.
- Preserve original content. Never summarize or paraphrase section bodies.

DOCUMENT TEXT:
%s`

// Generator is the chat-model surface the structurer needs. The eino
// model.BaseChatModel implementations satisfy it; tests inject a fake.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Structurer turns raw page text into a fixed-schema Document through one
// completion call followed by adversarial-safe JSON recovery.
type Structurer struct {
	// chatModel is the completion backend used for normalization.
	chatModel Generator
}

// New constructs a Structurer on top of the given chat model.
func New(chatModel Generator) (*Structurer, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("structurer: chat model must not be nil")
	}
	return &Structurer{chatModel: chatModel}, nil
}

// Structure normalizes rawText into a Document. The error taxonomy is fixed:
// ErrEmptyInput for empty input (no model call is made), *SpanError when the
// completion holds no JSON object, *ParseError when the recovered span fails
// to parse or validate. None of these are retried here — the caller decides
// whether a fresh model call is worth it.
func (s *Structurer) Structure(ctx context.Context, rawText string) (Document, error) {
	if strings.TrimSpace(rawText) == "" {
		return Document{}, ErrEmptyInput
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemInstruction),
		schema.UserMessage(fmt.Sprintf(structurePrompt, rawText)),
	}

	resp, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return Document{}, fmt.Errorf("structurer: completion failed: %w", err)
	}
	if resp == nil {
		return Document{}, fmt.Errorf("structurer: completion returned nil message")
	}

	span, err := ExtractJSON(resp.Content)
	if err != nil {
		return Document{}, err
	}

	return DecodeDocument(span)
}
