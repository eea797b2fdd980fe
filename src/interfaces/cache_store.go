package interfaces

import (
	"context"
	"stock-screener/src/models"
)

// -----------------------------------------------------------------------------
// ICacheStore defines the contract for the keyed cache of series and fundamentals.
// -----------------------------------------------------------------------------

type ICacheStore interface {

	// Initialize sets up the schema or directories.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Get returns the record for key. found is false when absent.
	Get(ctx context.Context, key models.MCacheKey) (record models.MCacheRecord, found bool, err error)

	// -----------------------------------------------------------------------------

	// Put inserts or wholly replaces the record for its key.
	Put(ctx context.Context, record models.MCacheRecord) error

	// -----------------------------------------------------------------------------

	// Name identifies the backend in logs and health output.
	Name() string

	// -----------------------------------------------------------------------------

	// Close the underlying connection
	Close() error
}
