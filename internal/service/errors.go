package service

import (
	"errors"
	"fmt"
)

// Errors returned by the catalog, draft builder and ledger.
// Callers match them with errors.Is; messages carry the offending value.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrEmptyOrder       = errors.New("order has no items")
	ErrAlreadyDelivered = errors.New("order already delivered")

	// ErrUnknownItem is a catalog miss. It matches ErrNotFound too.
	ErrUnknownItem = fmt.Errorf("unknown item: %w", ErrNotFound)
)
