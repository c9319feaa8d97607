package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docsmith-ai/docsmith/internal/structurer"
)

// DefaultRasterDPI is the resolution used when a page has no text layer
// and must be rasterized for OCR.
const DefaultRasterDPI = 300

// DocumentStructurer turns raw page text into a structured document.
type DocumentStructurer interface {
	Structure(ctx context.Context, rawText string) (structurer.Document, error)
}

// Adapter drives page extraction: native text layer first, OCR fallback
// for scanned pages, then structuring of whatever text came out.
type Adapter struct {
	structurer DocumentStructurer
	newOCR     func() (OCREngine, error)
	rasterDPI  float64
	log        *slog.Logger
}

// NewAdapter builds an adapter. newOCR is invoked lazily, at most once per
// Extract call, the first time a page needs OCR.
func NewAdapter(ds DocumentStructurer, newOCR func() (OCREngine, error), log *slog.Logger) (*Adapter, error) {
	if ds == nil {
		return nil, errors.New("extract: structurer is required")
	}
	if newOCR == nil {
		return nil, errors.New("extract: ocr constructor is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		structurer: ds,
		newOCR:     newOCR,
		rasterDPI:  DefaultRasterDPI,
		log:        log,
	}, nil
}

// Extract processes every page of src in order. A page whose text layer,
// OCR or structuring fails is recorded as an empty document for that page
// rather than aborting the whole file; only context cancellation stops the
// run early.
func (a *Adapter) Extract(ctx context.Context, src PageSource) (ExtractedDocument, error) {
	var (
		result ExtractedDocument
		ocr    OCREngine
	)
	defer func() {
		if ocr != nil {
			if err := ocr.Close(); err != nil {
				a.log.Warn("closing ocr engine", "error", err)
			}
		}
	}()

	numPages := src.NumPages()
	result.Pages = make([]structurer.Document, 0, numPages)

	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return ExtractedDocument{}, err
		}
		pageNumber := i + 1

		text, err := a.pageText(ctx, src, i, &ocr)
		if err != nil {
			a.log.Warn("page extraction failed", "page", pageNumber, "error", err)
			result.Pages = append(result.Pages, structurer.EmptyDocument(pageNumber))
			continue
		}

		doc, err := a.structurer.Structure(ctx, text)
		if err != nil {
			if !errors.Is(err, structurer.ErrEmptyInput) {
				a.log.Warn("page structuring failed", "page", pageNumber, "error", err)
			}
			result.Pages = append(result.Pages, structurer.EmptyDocument(pageNumber))
			continue
		}
		doc.PageNumber = pageNumber
		result.Pages = append(result.Pages, doc)
	}

	result.MergedText = mergeText(result.Pages)
	return result, nil
}

// pageText reads the native text layer and falls back to OCR when the layer
// is blank, creating the shared OCR engine on first use.
func (a *Adapter) pageText(ctx context.Context, src PageSource, page int, ocr *OCREngine) (string, error) {
	text, err := src.Text(page)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	img, err := src.Image(page, a.rasterDPI)
	if err != nil {
		return "", err
	}
	if *ocr == nil {
		engine, err := a.newOCR()
		if err != nil {
			return "", fmt.Errorf("starting ocr engine: %w", err)
		}
		*ocr = engine
	}
	return (*ocr).Recognize(ctx, img)
}

// mergeText joins the section contents of all pages into a single plain
// text blob in page order.
func mergeText(pages []structurer.Document) string {
	var parts []string
	for _, page := range pages {
		for _, section := range page.Sections {
			if strings.TrimSpace(section.Content) == "" {
				continue
			}
			parts = append(parts, section.Content)
		}
	}
	return strings.Join(parts, "\n")
}
