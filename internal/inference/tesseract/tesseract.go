// Package tesseract reads label text with the Tesseract OCR engine.
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Extractor wraps a single gosseract client. The client is not safe for
// concurrent use, so calls are serialised.
type Extractor struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an extractor for the given languages (e.g. "eng")
func New(languages ...string) (*Extractor, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return &Extractor{client: client}, nil
}

// ExtractText runs OCR over an encoded image
func (e *Extractor) ExtractText(ctx context.Context, encoded []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(encoded); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
