package capture

import (
	"context"

	"github.com/anime-shed/ecoscan-go/internal/storage"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/anime-shed/ecoscan-go/pkg/validation"
)

// URLSource downloads an image hosted elsewhere
type URLSource struct {
	url       string
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
}

func NewURLSource(rawURL string, fetcher storage.ImageFetcher, validator *validation.URLValidator) *URLSource {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &URLSource{url: rawURL, fetcher: fetcher, validator: validator}
}

func (s *URLSource) Capture(ctx context.Context) (*models.RawFrame, error) {
	if err := s.validator.ValidateImageURL(s.url); err != nil {
		return nil, err
	}
	data, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	frame, err := NewBytesSource(data, s.url).Capture(ctx)
	if err != nil {
		return nil, err
	}
	frame.Mode = models.CaptureURL
	return frame, nil
}

func (s *URLSource) Close() error { return nil }
