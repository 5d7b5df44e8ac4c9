package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/retry"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ImageFetcher downloads the raw bytes of a remote image
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// FetcherOptions tunes the HTTP image fetcher
type FetcherOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	Policy   retry.Policy
}

// DefaultFetcherOptions returns a 15s timeout, 20MB limit and the fetch retry policy
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Timeout:  15 * time.Second,
		MaxBytes: 20 * 1024 * 1024,
		Policy:   retry.FetchPolicy(),
	}
}

type httpImageFetcher struct {
	client *resty.Client
	opts   FetcherOptions
}

// NewHTTPImageFetcher creates a resty-backed fetcher. 5xx responses and
// transport failures are retried; 4xx responses fail immediately.
func NewHTTPImageFetcher(opts FetcherOptions) ImageFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetcherOptions().Timeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultFetcherOptions().MaxBytes
	}
	if opts.Policy.Name == "" {
		opts.Policy = retry.FetchPolicy()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)).
		SetHeaders(map[string]string{
			"Accept":     "image/jpeg, image/png, image/webp, image/gif, image/bmp, */*",
			"User-Agent": "EcoScan/1.0",
		})

	return &httpImageFetcher{client: client, opts: opts}
}

func (h *httpImageFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	start := time.Now()
	attempts := 0

	body, err := retry.DoValue(ctx, h.opts.Policy, func(ctx context.Context) ([]byte, error) {
		attempts++
		res, err := h.client.R().SetContext(ctx).Get(imageURL)
		if err != nil {
			return nil, err
		}
		if res.IsError() {
			kind := "client"
			if res.StatusCode() >= 500 {
				kind = "server"
			}
			return nil, retry.NewStatusError(res.StatusCode(), fmt.Errorf("%s error: status code %d", kind, res.StatusCode()))
		}
		return res.Body(), nil
	})

	fields := logrus.Fields{
		"url":         imageURL,
		"attempts":    attempts,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		logger.WithError(err).WithFields(fields).Warn("Image fetch failed")
		return nil, classifyFetchError(err)
	}
	if int64(len(body)) > h.opts.MaxBytes {
		return nil, apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", h.opts.MaxBytes), nil)
	}
	if len(body) == 0 {
		return nil, apperrors.NewInvalidImageError("remote image is empty", nil)
	}

	fields["bytes"] = len(body)
	logger.WithFields(fields).Debug("Image fetched")
	return body, nil
}

func classifyFetchError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("Image fetch timeout", err)
	default:
		return apperrors.NewNetworkError("Failed to fetch image", err)
	}
}
