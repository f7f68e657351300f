package semantic

import (
	"errors"

	"github.com/hyperjump/pad/internal/embedding"
)

// Error taxonomy surfaced by Service. Operations wrap one of these around the
// underlying cause, so both can be matched with errors.Is.
var (
	// ErrEmbedding reports a provider failure or malformed provider output.
	ErrEmbedding = errors.New("embedding error")
	// ErrPersistence reports a failure to read, decode or write the store.
	ErrPersistence = errors.New("persistence error")
	// ErrIndex reports an index/store desynchronization. It is a programming
	// error and must not be retried.
	ErrIndex = errors.New("index error")
	// ErrProviderInit reports that the embedding provider could not be created.
	ErrProviderInit = errors.New("embedding provider initialization failed")
	// ErrDimensionMismatch reports vectors whose length differs from the store.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmptyText is returned for notes or queries with no content.
	ErrEmptyText = embedding.ErrEmptyText
)
