package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteHistoryRepository implements HistoryRepository on a single SQLite file
type SQLiteHistoryRepository struct {
	db     *sql.DB
	limit  int
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteHistoryRepository opens (or creates) the history database at dbPath.
// Use ":memory:" for a throwaway store.
func NewSQLiteHistoryRepository(dbPath string, limit int) (*SQLiteHistoryRepository, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history limit must be > 0 (got %d)", limit)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open history database", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	repo := &SQLiteHistoryRepository{db: db, limit: limit}
	if err := repo.init(); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"path":  dbPath,
		"limit": limit,
	}).Debug("History repository ready")

	return repo, nil
}

func (r *SQLiteHistoryRepository) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		result TEXT NOT NULL,
		thumbnail TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	`
	if _, err := r.db.Exec(query); err != nil {
		return apperrors.NewStorageError("failed to create history table", err)
	}
	return nil
}

// Append inserts the item and prunes older entries in one transaction
func (r *SQLiteHistoryRepository) Append(ctx context.Context, item models.HistoryItem) error {
	if item.ID == "" {
		return apperrors.NewStorageError("cannot append history item", ErrEmptyHistoryID)
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}

	payload, err := json.Marshal(item.Result)
	if err != nil {
		return apperrors.NewStorageError("failed to encode history result", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return apperrors.NewStorageError("cannot append history item", ErrRepositoryClosed)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin history transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (id, created_at, result, thumbnail) VALUES (?, ?, ?, ?)`,
		item.ID, item.Timestamp.UnixNano(), string(payload), item.Thumbnail,
	); err != nil {
		return apperrors.NewStorageError("failed to insert history item", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, r.limit)
	if err != nil {
		return apperrors.NewStorageError("failed to prune history", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit history transaction", err)
	}

	pruned, _ := res.RowsAffected()
	logger.WithFields(logrus.Fields{
		"id":     item.ID,
		"pruned": pruned,
	}).Debug("History item appended")
	return nil
}

// List returns items newest first
func (r *SQLiteHistoryRepository) List(ctx context.Context, limit int) ([]models.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, apperrors.NewStorageError("cannot list history", ErrRepositoryClosed)
	}

	query := `SELECT id, created_at, result, thumbnail FROM history ORDER BY created_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query history", err)
	}
	defer rows.Close()

	items := []models.HistoryItem{}
	for rows.Next() {
		var (
			item      models.HistoryItem
			createdAt int64
			payload   string
		)
		if err := rows.Scan(&item.ID, &createdAt, &payload, &item.Thumbnail); err != nil {
			return nil, apperrors.NewStorageError("failed to scan history row", err)
		}
		if err := json.Unmarshal([]byte(payload), &item.Result); err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("corrupt history item %s", item.ID), err)
		}
		item.Timestamp = time.Unix(0, createdAt).UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read history", err)
	}
	return items, nil
}

// Clear deletes every history item
func (r *SQLiteHistoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return apperrors.NewStorageError("cannot clear history", ErrRepositoryClosed)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return apperrors.NewStorageError("failed to clear history", err)
	}
	logger.Info("History cleared")
	return nil
}

// Close releases the database handle. It is safe to call more than once.
func (r *SQLiteHistoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}
