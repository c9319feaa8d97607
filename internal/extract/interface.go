// Package extract turns PDF files into structured documents. Each page is
// read through its native text layer when one exists and falls back to
// rasterizing the page and running OCR when it does not.
package extract

import (
	"context"
	"image"

	"github.com/docsmith-ai/docsmith/internal/structurer"
)

// PageSource exposes the pages of an opened document.
type PageSource interface {
	// NumPages returns the page count.
	NumPages() int
	// Text returns the native text layer of a page. Pages are 0-based.
	Text(page int) (string, error)
	// Image rasterizes a page at the given DPI. Pages are 0-based.
	Image(page int, dpi float64) (image.Image, error)
	// Close releases the underlying document.
	Close() error
}

// OCREngine recognizes text in a rasterized page image.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// ExtractedDocument is the result of processing every page of a document.
type ExtractedDocument struct {
	// Pages holds one structured document per page, in page order.
	Pages []structurer.Document
	// MergedText is the concatenated section text of all pages, used for
	// plain-text ingestion paths that do not care about structure.
	MergedText string
}
