package keywords

import "errors"

var (
	// ErrRepositoryRequired is returned when a keyword repository is not provided.
	ErrRepositoryRequired = errors.New("keyword repository required")

	// ErrLifecycleRequired is returned when an article lifecycle store is not provided.
	ErrLifecycleRequired = errors.New("article lifecycle required")

	// ErrRebuilderRequired is returned when an index rebuilder is not provided.
	ErrRebuilderRequired = errors.New("rebuilder required")
)
