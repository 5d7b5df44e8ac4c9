package capture

import (
	"context"

	"github.com/anime-shed/ecoscan-go/pkg/models"
)

// Source yields a single decoded frame per capture event
type Source interface {
	Capture(ctx context.Context) (*models.RawFrame, error)
	Close() error
}
