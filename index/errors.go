package index

import "errors"

var (
	// ErrArticleSourceRequired is returned when no article source is supplied.
	ErrArticleSourceRequired = errors.New("article source is required")

	// ErrKeywordLookupRequired is returned when no keyword lookup is supplied.
	ErrKeywordLookupRequired = errors.New("keyword lookup is required")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrStoreRequired is returned when no chunk store is supplied.
	ErrStoreRequired = errors.New("chunk store is required")

	// ErrInvalidMaxAttempts is returned by RetryWithBackoff when maxAttempts <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidTopK is returned when a search asks for fewer than one result.
	ErrInvalidTopK = errors.New("topK must be greater than 0")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrClosed is returned by operations on a closed manager.
	ErrClosed = errors.New("index manager is closed")
)
