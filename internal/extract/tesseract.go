package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR recognizes page images with a local Tesseract installation.
type TesseractOCR struct {
	client *gosseract.Client
}

var _ OCREngine = (*TesseractOCR)(nil)

// NewTesseract creates an OCR engine. Languages are Tesseract language
// codes such as "eng" or "deu"; with none given Tesseract's default applies.
func NewTesseract(languages ...string) (*TesseractOCR, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting ocr languages: %w", err)
		}
	}
	return &TesseractOCR{client: client}, nil
}

func (t *TesseractOCR) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding page image: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing page image: %w", err)
	}
	return text, nil
}

func (t *TesseractOCR) Close() error {
	return t.client.Close()
}
