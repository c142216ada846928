package ingestion

import "errors"

var (
	// ErrKeywordSourceRequired is returned when a keyword source is not provided.
	ErrKeywordSourceRequired = errors.New("keyword source required")

	// ErrFetcherRequired is returned when a content fetcher is not provided.
	ErrFetcherRequired = errors.New("fetcher required")

	// ErrScorerRequired is returned when a scorer is not provided.
	ErrScorerRequired = errors.New("scorer required")

	// ErrArticleWriterRequired is returned when an article writer is not provided.
	ErrArticleWriterRequired = errors.New("article writer required")

	// ErrLedgerRequired is returned when a URL ledger is not provided.
	ErrLedgerRequired = errors.New("url ledger required")

	// ErrIndexerRequired is returned when an indexer is not provided.
	ErrIndexerRequired = errors.New("indexer required")

	// ErrRunInProgress describes a trigger rejected because a run is executing.
	// StartRun reports it through RunTicket.Accepted rather than returning it.
	ErrRunInProgress = errors.New("an ingestion run is already in progress")

	// ErrNoActiveKeywords ends a run that has nothing to do.
	ErrNoActiveKeywords = errors.New("no active keywords")

	// ErrSinkClosed is returned when sending to a closed sink.
	ErrSinkClosed = errors.New("sink closed")

	// ErrSinkFull is returned when a channel sink's buffer is full.
	ErrSinkFull = errors.New("sink buffer full")

	// ErrScoreMismatch is returned when a scorer answers with a different
	// number of results than articles it was given.
	ErrScoreMismatch = errors.New("score count mismatch")

	// ErrClosed is returned by StartRun after Close.
	ErrClosed = errors.New("orchestrator closed")
)
