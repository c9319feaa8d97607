package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/docsmith-ai/docsmith/internal/extract"
	"github.com/docsmith-ai/docsmith/internal/structurer"
)

// Extractor is the page extraction front end for PDF ingestion.
type Extractor interface {
	Extract(ctx context.Context, src extract.PageSource) (extract.ExtractedDocument, error)
}

// ErrNoExtractor is returned by the PDF ingest paths when the pipeline was
// built without an extractor.
var ErrNoExtractor = errors.New("ingestion: pipeline has no extractor configured")

// IngestStructured turns structured pages into chunks and ingests them
// under source. Section chunks come first in page order, then one chunk
// per key/value pair.
func (p *Pipeline) IngestStructured(ctx context.Context, pages []structurer.Document, source string) (int, error) {
	return p.ingestChunks(ctx, structuredChunks(pages), source)
}

// IngestPDF opens a PDF on disk, extracts its pages and ingests them.
func (p *Pipeline) IngestPDF(ctx context.Context, path, source string) (int, error) {
	if p.extractor == nil {
		return 0, ErrNoExtractor
	}
	src, err := extract.OpenPDF(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return p.ingestExtracted(ctx, src, source)
}

// IngestPDFBytes ingests a PDF held in memory, e.g. an uploaded file.
func (p *Pipeline) IngestPDFBytes(ctx context.Context, data []byte, source string) (int, error) {
	if p.extractor == nil {
		return 0, ErrNoExtractor
	}
	src, err := extract.OpenPDFBytes(data)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return p.ingestExtracted(ctx, src, source)
}

func (p *Pipeline) ingestExtracted(ctx context.Context, src extract.PageSource, source string) (int, error) {
	doc, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("extracting %s: %w", source, err)
	}
	return p.IngestStructured(ctx, doc.Pages, source)
}

// structuredChunks flattens pages into chunk texts. Section chunks are
// "title\ncontent" when the section has a title and the bare content
// otherwise; sections with blank content are skipped. After all sections,
// every key/value pair becomes its own "key: value" chunk, pages in order
// and keys sorted within a page for stable output.
func structuredChunks(pages []structurer.Document) []string {
	var chunks []string
	for _, page := range pages {
		for _, section := range page.Sections {
			if strings.TrimSpace(section.Content) == "" {
				continue
			}
			if section.Title != "" {
				chunks = append(chunks, section.Title+"\n"+section.Content)
			} else {
				chunks = append(chunks, section.Content)
			}
		}
	}
	for _, page := range pages {
		chunks = append(chunks, keyValueChunks(page.KeyValuePairs)...)
	}
	return chunks
}

func keyValueChunks(pairs map[string]string) []string {
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	chunks := make([]string, len(keys))
	for i, key := range keys {
		chunks[i] = key + ": " + pairs[key]
	}
	return chunks
}
