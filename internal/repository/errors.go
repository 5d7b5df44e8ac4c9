package repository

import "errors"

var (
	// ErrEmptyHistoryID indicates an item was appended without an ID
	ErrEmptyHistoryID = errors.New("history item has no id")

	// ErrRepositoryClosed indicates the repository was used after Close
	ErrRepositoryClosed = errors.New("history repository closed")
)
