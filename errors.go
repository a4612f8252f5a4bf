package convmem

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind in the engine's error handling design.
// Backends and pipeline stages wrap one of these with op context so callers
// can errors.Is against the kind regardless of which backend produced it.
var (
	// ErrNotFound is returned when a lookup (message, semref, document) misses.
	ErrNotFound = errors.New("convmem: not found")

	// ErrStoreClosed is returned when an operation is attempted on a closed provider.
	ErrStoreClosed = errors.New("convmem: store is closed")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("convmem: invalid configuration")

	// ErrInvalidDimension is returned when a vector's length doesn't match
	// the store's configured embedding dimension.
	ErrInvalidDimension = errors.New("convmem: invalid vector dimension")

	// ErrInvalidVector is returned when vector data is malformed (NaN, Inf, wrong length).
	ErrInvalidVector = errors.New("convmem: invalid vector data")

	// ErrIntegrity signals a lookup referencing an ordinal absent from its
	// collection. Per spec this is a programming error: the engine raises it
	// immediately and never returns partial results.
	ErrIntegrity = errors.New("convmem: integrity violation: ordinal has no backing record")

	// ErrTranslationFailed is returned when the NL query translator produced
	// a non-conforming structured query; the whole query fails.
	ErrTranslationFailed = errors.New("convmem: query translation failed")

	// ErrExtractionFailed is returned when the knowledge extractor fails for
	// a batch during index build. Previously committed batches remain.
	ErrExtractionFailed = errors.New("convmem: knowledge extraction failed")

	// ErrEmbeddingFailed is returned when the embedding client fails
	// permanently (after retries) during insertion.
	ErrEmbeddingFailed = errors.New("convmem: embedding failed")
)

// StoreError wraps an error with the operation name that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("convmem: %v", e.Err)
	}
	return fmt.Sprintf("convmem: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return errors.Is(e.Err, target) }

// WrapError wraps err with operation context op. Returns nil if err is nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
