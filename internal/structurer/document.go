// Package structurer normalizes arbitrary extracted text into a fixed-schema
// structured document via a single chat-model call. The model's output is
// treated as untrusted: the raw completion may wrap the JSON in prose or
// markdown fencing, so a brace-span recovery step and a strict validating
// decoder sit between the model and the rest of the system.
package structurer

import (
	"encoding/json"
	"fmt"
)

// Section is one semantically coherent span of a document.
type Section struct {
	// Title is the section heading, empty when the model found none.
	Title string `json:"title"`
	// Content is the original section text, unsummarized.
	Content string `json:"content"`
}

// Table is a tabular layout detected in the document, converted to
// row/column form.
type Table struct {
	// Title is an optional caption or label for the table.
	Title string `json:"title,omitempty"`
	// Headers holds the column headers, if any were detected.
	Headers []string `json:"headers,omitempty"`
	// Rows holds the table body, one slice of cells per row.
	Rows [][]string `json:"rows"`
}

// Entities groups the named entities extracted from the document into the
// five fixed categories.
type Entities struct {
	Dates         []string `json:"dates"`
	Names         []string `json:"names"`
	Locations     []string `json:"locations"`
	Organizations []string `json:"organizations"`
	Amounts       []string `json:"amounts"`
}

// Document is the normalized fixed-schema representation of one page of an
// arbitrary source document.
type Document struct {
	// DocumentType is the heuristic classification (invoice, contract,
	// report, ...). "unknown" when the model is uncertain.
	DocumentType string `json:"document_type"`

	// Title is the document or page title, empty when none was found.
	Title string `json:"title"`

	// Sections holds the semantic segments in reading order.
	Sections []Section `json:"sections"`

	// Tables holds detected tabular structures in reading order.
	Tables []Table `json:"tables"`

	// Entities holds the extracted named entities.
	Entities Entities `json:"entities"`

	// KeyValuePairs holds detected "key: value" patterns.
	KeyValuePairs map[string]string `json:"key_value_pairs"`

	// PageNumber is the 1-based page this document was structured from.
	// Stamped by the extraction adapter, never by the model.
	PageNumber int `json:"page_number,omitempty"`
}

// requiredKeys lists the top-level keys the model output must contain, with
// a coarse JSON container kind each value must decode as.
var requiredKeys = []struct {
	name string
	kind string // "string", "array", or "object"
}{
	{"document_type", "string"},
	{"title", "string"},
	{"sections", "array"},
	{"tables", "array"},
	{"entities", "object"},
	{"key_value_pairs", "object"},
}

// EmptyDocument returns a Document with DocumentType "unknown" and all
// fields empty, stamped with the given page number. Used when a page yields
// no usable text and the whole-document flow must continue anyway.
func EmptyDocument(pageNumber int) Document {
	return Document{
		DocumentType:  "unknown",
		Sections:      []Section{},
		Tables:        []Table{},
		KeyValuePairs: map[string]string{},
		PageNumber:    pageNumber,
	}
}

// DecodeDocument parses span as a structured document, enforcing that all
// six mandated top-level keys are present with the correct container types.
// Malformed output is rejected, never coerced: any violation returns a
// *ParseError carrying the offending span.
func DecodeDocument(span string) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return Document{}, &ParseError{Span: span, Err: err}
	}

	for _, key := range requiredKeys {
		val, ok := raw[key.name]
		if !ok {
			return Document{}, &ParseError{Span: span, Err: fmt.Errorf("missing required key %q", key.name)}
		}
		if err := checkKind(val, key.kind); err != nil {
			return Document{}, &ParseError{Span: span, Err: fmt.Errorf("key %q: %w", key.name, err)}
		}
	}

	var doc Document
	if err := json.Unmarshal([]byte(span), &doc); err != nil {
		return Document{}, &ParseError{Span: span, Err: err}
	}
	if doc.KeyValuePairs == nil {
		doc.KeyValuePairs = map[string]string{}
	}

	return doc, nil
}

// checkKind verifies that the raw JSON value decodes as the expected
// container kind without decoding its contents.
func checkKind(raw json.RawMessage, kind string) error {
	switch kind {
	case "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("expected a JSON string")
		}
	case "array":
		var a []json.RawMessage
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("expected a JSON array")
		}
	case "object":
		var o map[string]json.RawMessage
		if err := json.Unmarshal(raw, &o); err != nil {
			return fmt.Errorf("expected a JSON object")
		}
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	return nil
}
