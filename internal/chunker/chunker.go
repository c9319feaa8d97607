// Package chunker splits raw document text into bounded-size segments that
// serve as the atomic unit of embedding and retrieval. Splitting is
// line-granular: a line is never broken in the middle, so line-level semantic
// boundaries survive chunking at the cost of imprecise size control.
package chunker

import "strings"

// DefaultMaxChars is the chunk size budget used by the ingestion pipeline
// when the caller does not specify one.
const DefaultMaxChars = 1000

// Split divides text into chunks of at most maxChars characters, accumulating
// whole lines greedily. When appending the next line would push the current
// chunk past maxChars and the chunk already holds at least one line, the chunk
// is flushed and a new one begins. A single line longer than maxChars becomes
// its own oversized chunk. Empty input yields no chunks.
//
// Joining the returned chunks with "\n" reproduces the input exactly.
func Split(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, line := range strings.Split(text, "\n") {
		if currentLen+len(line) > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			currentLen = 0
		}
		current = append(current, line)
		currentLen += len(line)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	return chunks
}
