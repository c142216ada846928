package scoring

import "errors"

var (
	// ErrCompleterRequired is returned when no completion service is supplied.
	ErrCompleterRequired = errors.New("completer is required")

	// ErrEmbedderRequired is returned when no embedding service is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidBatchSize is returned when the batch size is below one.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
)
