package structurer

import (
	"errors"
	"testing"
)

// validDocJSON is a minimal model output satisfying the full schema.
const validDocJSON = `{
  "document_type": "invoice",
  "title": "Invoice 2026-041",
  "sections": [
    {"title": "Billing", "content": "Total due within 14 days."},
    {"title": "", "content": "Thank you for your business."}
  ],
  "tables": [
    {"headers": ["Item", "Price"], "rows": [["Widget", "9.99"]]}
  ],
  "entities": {
    "dates": ["2026-08-01"],
    "names": [],
    "locations": ["Hamburg"],
    "organizations": ["ACME GmbH"],
    "amounts": ["9.99 EUR"]
  },
  "key_value_pairs": {"Invoice number": "2026-041"}
}`

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	doc, err := DecodeDocument(validDocJSON)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}

	if doc.DocumentType != "invoice" {
		t.Errorf("DocumentType = %q, want %q", doc.DocumentType, "invoice")
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(doc.Sections))
	}
	if doc.Sections[0].Title != "Billing" {
		t.Errorf("section title = %q, want %q", doc.Sections[0].Title, "Billing")
	}
	if len(doc.Tables) != 1 || len(doc.Tables[0].Rows) != 1 {
		t.Errorf("unexpected tables: %+v", doc.Tables)
	}
	if got := doc.KeyValuePairs["Invoice number"]; got != "2026-041" {
		t.Errorf("key_value_pairs = %q, want %q", got, "2026-041")
	}
	if len(doc.Entities.Organizations) != 1 {
		t.Errorf("unexpected entities: %+v", doc.Entities)
	}
}

func TestDecodeDocumentRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		span string
	}{
		{
			name: "not json",
			span: `{definitely not json`,
		},
		{
			name: "missing key_value_pairs",
			span: `{"document_type":"x","title":"","sections":[],"tables":[],"entities":{}}`,
		},
		{
			name: "missing entities",
			span: `{"document_type":"x","title":"","sections":[],"tables":[],"key_value_pairs":{}}`,
		},
		{
			name: "document_type wrong type",
			span: `{"document_type":7,"title":"","sections":[],"tables":[],"entities":{},"key_value_pairs":{}}`,
		},
		{
			name: "sections is an object not an array",
			span: `{"document_type":"x","title":"","sections":{},"tables":[],"entities":{},"key_value_pairs":{}}`,
		},
		{
			name: "key_value_pairs is an array",
			span: `{"document_type":"x","title":"","sections":[],"tables":[],"entities":{},"key_value_pairs":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeDocument(tt.span)

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if parseErr.Span != tt.span {
				t.Errorf("ParseError.Span does not carry the offending span")
			}
		})
	}
}

func TestDecodeDocumentMinimal(t *testing.T) {
	t.Parallel()

	// All six keys present but empty — the output for a blank page.
	span := `{"document_type":"unknown","title":"","sections":[],"tables":[],"entities":{"dates":[],"names":[],"locations":[],"organizations":[],"amounts":[]},"key_value_pairs":{}}`
	doc, err := DecodeDocument(span)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if doc.DocumentType != "unknown" {
		t.Errorf("DocumentType = %q, want %q", doc.DocumentType, "unknown")
	}
	if doc.KeyValuePairs == nil {
		t.Error("KeyValuePairs must never be nil after decoding")
	}
}

func TestEmptyDocument(t *testing.T) {
	t.Parallel()

	doc := EmptyDocument(3)
	if doc.DocumentType != "unknown" {
		t.Errorf("DocumentType = %q, want %q", doc.DocumentType, "unknown")
	}
	if doc.PageNumber != 3 {
		t.Errorf("PageNumber = %d, want 3", doc.PageNumber)
	}
	if len(doc.Sections) != 0 || len(doc.Tables) != 0 || len(doc.KeyValuePairs) != 0 {
		t.Errorf("EmptyDocument is not empty: %+v", doc)
	}
}
