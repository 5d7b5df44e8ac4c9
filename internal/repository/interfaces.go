package repository

import (
	"context"

	"github.com/anime-shed/ecoscan-go/pkg/models"
)

// HistoryRepository defines the interface for the capped scan history log
type HistoryRepository interface {
	// Append stores an item and prunes everything beyond the newest limit entries
	Append(ctx context.Context, item models.HistoryItem) error

	// List returns items newest first; limit <= 0 returns all of them
	List(ctx context.Context, limit int) ([]models.HistoryItem, error)

	// Clear removes every item
	Clear(ctx context.Context) error

	Close() error
}
