package extract

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzSource reads pages from a PDF via MuPDF.
type FitzSource struct {
	doc *fitz.Document
}

var _ PageSource = (*FitzSource)(nil)

// OpenPDF opens a PDF file on disk.
func OpenPDF(path string) (*FitzSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	return &FitzSource{doc: doc}, nil
}

// OpenPDFBytes opens a PDF held in memory, e.g. an uploaded file.
func OpenPDFBytes(data []byte) (*FitzSource, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening pdf from memory: %w", err)
	}
	return &FitzSource{doc: doc}, nil
}

func (s *FitzSource) NumPages() int {
	return s.doc.NumPage()
}

func (s *FitzSource) Text(page int) (string, error) {
	text, err := s.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("reading text layer of page %d: %w", page+1, err)
	}
	return text, nil
}

func (s *FitzSource) Image(page int, dpi float64) (image.Image, error) {
	img, err := s.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("rasterizing page %d at %.0f dpi: %w", page+1, dpi, err)
	}
	return img, nil
}

func (s *FitzSource) Close() error {
	return s.doc.Close()
}
