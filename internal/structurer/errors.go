package structurer

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned by Structure when the input text is empty after
// trimming. No model call is made in that case.
var ErrEmptyInput = errors.New("structurer: input text is empty")

// SpanError reports that the model output contained no brace-delimited JSON
// span at all. Raw carries the full completion text for diagnosis.
type SpanError struct {
	// Raw is the complete model output that lacked a JSON span.
	Raw string
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("structurer: no JSON object found in model output: %.200q", e.Raw)
}

// ParseError reports that a brace-delimited span was found but failed to
// parse or validate as a structured document. Span carries the offending
// text; Err carries the underlying cause.
type ParseError struct {
	// Span is the extracted text that failed to parse or validate.
	Span string
	// Err is the underlying JSON or validation error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structurer: model output is not a valid document: %v (span: %.200q)", e.Err, e.Span)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ParseError) Unwrap() error { return e.Err }
