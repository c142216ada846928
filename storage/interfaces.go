package storage

import (
	"context"
	"time"

	"github.com/poiesic/newswire/core"
)

// Inactive reasons recorded on soft-deleted articles.
const (
	ReasonKeywordArchived = "keyword_archived"
	ReasonKeywordDeleted  = "keyword_deleted"
)

// KeywordRepository stores tracked keywords. Names are unique ignoring case.
type KeywordRepository interface {
	// CreateKeyword inserts a keyword. Returns ErrDuplicateKey if a keyword
	// with the same name (ignoring case) exists.
	CreateKeyword(ctx context.Context, name string, status core.KeywordStatus) (*core.Keyword, error)

	// GetKeyword returns ErrNotFound if the keyword doesn't exist.
	GetKeyword(ctx context.Context, id int64) (*core.Keyword, error)

	// FindKeywordByName matches ignoring case. Returns ErrNotFound on a miss.
	FindKeywordByName(ctx context.Context, name string) (*core.Keyword, error)

	// ListKeywords returns keywords in creation order. With no statuses,
	// every keyword is returned.
	ListKeywords(ctx context.Context, statuses ...core.KeywordStatus) ([]*core.Keyword, error)

	// UpdateKeywordStatus returns ErrNotFound if the keyword doesn't exist.
	UpdateKeywordStatus(ctx context.Context, id int64, status core.KeywordStatus) error

	// DeleteKeyword hard-deletes the keyword record.
	DeleteKeyword(ctx context.Context, id int64) error
}

// ArticleLifecycle flips article visibility when a keyword changes state.
type ArticleLifecycle interface {
	// DeactivateByKeyword soft-deletes every active article of the keyword,
	// recording reason. With ReasonKeywordDeleted, articles archived
	// earlier are re-marked too so they can never be reactivated. Returns
	// the number of rows changed.
	DeactivateByKeyword(ctx context.Context, keyword, reason string) (int64, error)

	// ReactivateByKeyword restores the articles that were soft-deleted with
	// ReasonKeywordArchived. Rows whose URL has since been taken by another
	// active article stay inactive.
	ReactivateByKeyword(ctx context.Context, keyword string) (int64, error)
}

// ArticleRepository is the durable article store.
type ArticleRepository interface {
	ArticleLifecycle

	// SaveArticles inserts articles in one transaction and returns those
	// actually written. An article whose URL belongs to a live article is
	// skipped.
	SaveArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error)

	// GetArticles returns the articles that exist among ids, in no
	// particular order.
	GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error)

	// EligibleArticles returns active articles under the given keywords
	// collected at or after since with a final score of at least minScore.
	EligibleArticles(ctx context.Context, keywords []string, since time.Time, minScore int) ([]*core.Article, error)

	// CountArticles counts active articles collected at or after since.
	// A zero since counts all of them.
	CountArticles(ctx context.Context, since time.Time) (int, error)

	// PurgeOlderThan hard-deletes articles collected before cutoff.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// URLLedger is the permanent record of ingested URLs. Entries are never
// removed.
type URLLedger interface {
	// KnownSince returns URLs first seen at or after since. A zero since
	// returns the whole ledger.
	KnownSince(ctx context.Context, since time.Time) (map[string]struct{}, error)

	// Existing returns the subset of urls already in the ledger.
	Existing(ctx context.Context, urls []string) (map[string]struct{}, error)

	// Append records urls. URLs already present keep their first-seen time.
	Append(ctx context.Context, urls ...string) error
}

// ChunkStore holds the durable snapshot of the retrieval index.
type ChunkStore interface {
	// SaveChunks replaces the stored snapshot with chunks atomically.
	SaveChunks(ctx context.Context, chunks []core.IndexedChunk) error

	// LoadChunks returns the last saved snapshot, or nothing if none exists.
	LoadChunks(ctx context.Context) ([]core.IndexedChunk, error)

	Close() error
}
