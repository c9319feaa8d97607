package structurer

import "strings"

// ExtractJSON locates the JSON object embedded in a model completion.
// Chat models routinely wrap their JSON in explanatory prose or markdown
// fencing despite instructions not to, so the extraction is deliberately
// forgiving: the span from the first '{' through the last '}' is taken as
// the candidate object. Validation of the span is the decoder's job.
//
// Returns a *SpanError when no brace-delimited span exists.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", &SpanError{Raw: text}
	}
	return text[start : end+1], nil
}
