package structurer

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeGenerator returns a canned completion and records the messages it saw.
type fakeGenerator struct {
	reply    string
	err      error
	calls    int
	lastMsgs []*schema.Message
}

func (f *fakeGenerator) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.lastMsgs = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func TestStructure(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "Sure, here is the structured output:\n" + validDocJSON + "\nLet me know if you need more."}
	s, err := New(gen)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := s.Structure(context.Background(), "Invoice 2026-041\nTotal due within 14 days.")
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}

	if doc.DocumentType != "invoice" {
		t.Errorf("DocumentType = %q, want %q", doc.DocumentType, "invoice")
	}
	if gen.calls != 1 {
		t.Errorf("model called %d times, want 1", gen.calls)
	}
	if len(gen.lastMsgs) != 2 {
		t.Fatalf("got %d messages, want system + user", len(gen.lastMsgs))
	}
	if gen.lastMsgs[0].Role != schema.System {
		t.Errorf("first message role = %v, want system", gen.lastMsgs[0].Role)
	}
}

func TestStructureEmptyInput(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: validDocJSON}
	s, _ := New(gen)

	for _, input := range []string{"", "   \n\t  "} {
		_, err := s.Structure(context.Background(), input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Structure(%q): got %v, want ErrEmptyInput", input, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("model called %d times for empty input, want 0", gen.calls)
	}
}

func TestStructureNoJSONInReply(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "I could not process this document."}
	s, _ := New(gen)

	_, err := s.Structure(context.Background(), "some text")
	var spanErr *SpanError
	if !errors.As(err, &spanErr) {
		t.Fatalf("expected *SpanError, got %v", err)
	}
	if spanErr.Raw != gen.reply {
		t.Errorf("SpanError.Raw = %q, want the raw completion", spanErr.Raw)
	}
}

func TestStructureInvalidJSONInReply(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: `{"document_type": "unterminated`}
	s, _ := New(gen)

	_, err := s.Structure(context.Background(), "some text")
	var spanErr *SpanError
	if !errors.As(err, &spanErr) {
		// first '{' with no '}' at all yields a span error; with a closing
		// brace but broken JSON it must be a parse error instead
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *SpanError or *ParseError, got %v", err)
		}
	}
}

func TestStructureModelFailurePropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("provider unreachable")
	gen := &fakeGenerator{err: wantErr}
	s, _ := New(gen)

	_, err := s.Structure(context.Background(), "some text")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}
