package ingestion

import (
	"path/filepath"
	"strings"
)

// StdinSource is the label used when text arrives without a file path.
const StdinSource = "stdin"

// InferSource derives a source label from a file path. The label is the
// base file name; empty paths and "-" map to StdinSource.
func InferSource(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return StdinSource
	}
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return StdinSource
	}
	return base
}
