package ingestion

import (
	"context"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/scoring"
)

// KeywordSource lists keywords by status.
type KeywordSource interface {
	ListKeywords(ctx context.Context, statuses ...core.KeywordStatus) ([]*core.Keyword, error)
}

// Scorer evaluates a batch of articles. Results match the input in order
// and length.
type Scorer interface {
	ScoreBatch(ctx context.Context, articles []*core.Article, keywords []string) []scoring.Evaluation
	Stats() scoring.Stats
}

// ArticleWriter persists articles and counts them for status reports.
type ArticleWriter interface {
	SaveArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error)
	CountArticles(ctx context.Context, since time.Time) (int, error)
}

// Indexer receives each newly saved article.
type Indexer interface {
	AddOrUpdate(ctx context.Context, article *core.Article) (bool, error)
}
