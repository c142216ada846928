package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/index"
)

const (
	// DefaultThreshold is the minimum chunk similarity considered a match.
	DefaultThreshold = 0.60
	// DefaultMaxResults is the number of articles returned when unset.
	DefaultMaxResults = 5

	// verbatimBoost is added when the article contains every query term.
	verbatimBoost = 0.3
	// chunksPerResult widens the chunk query so that collapsing several
	// chunks of one article still leaves enough articles.
	chunksPerResult = 3
)

// ChunkIndex finds chunks similar to a query.
type ChunkIndex interface {
	Search(ctx context.Context, query string, topK int, threshold float32, filter *index.Filter) ([]core.RankedChunk, error)
}

// ArticleLoader loads articles by ID.
type ArticleLoader interface {
	GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error)
}

// Options narrow and size a search. Zero values select defaults.
type Options struct {
	MaxResults int
	Threshold  float32
	Keyword    string
	Category   string
	MinScore   int
	Monitor    SearchMonitor
}

func (o Options) normalized() Options {
	if o.MaxResults < 1 {
		o.MaxResults = DefaultMaxResults
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Monitor == nil {
		o.Monitor = &noopMonitor{}
	}
	return o
}

// Result is one article answering a query.
type Result struct {
	Article *core.Article
	// Chunk is the article's best matching chunk.
	Chunk core.IndexedChunk
	// Similarity is the best chunk's cosine similarity to the query.
	Similarity float32
	// Score ranks results: Similarity plus any verbatim boost.
	Score float32
}

// Searcher turns chunk hits into ranked articles.
type Searcher struct {
	index    ChunkIndex
	articles ArticleLoader
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(idx ChunkIndex, articles ArticleLoader, opts ...Option) (*Searcher, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if articles == nil {
		return nil, ErrArticleLoaderRequired
	}

	s := &Searcher{
		index:    idx,
		articles: articles,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// Search returns up to opts.MaxResults articles for query, best first.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	opts = opts.normalized()
	monitor := opts.Monitor
	monitor.Start(query, opts)

	filter := &index.Filter{Keyword: opts.Keyword, Category: opts.Category, MinScore: opts.MinScore}
	chunks, err := s.index.Search(ctx, query, opts.MaxResults*chunksPerResult, opts.Threshold, filter)
	if err != nil {
		s.logger.Error("error searching index", "err", err)
		return nil, fmt.Errorf("search index: %w", err)
	}
	monitor.AfterChunkSearch(chunks)

	// chunks arrive best first, so the first chunk seen per article wins
	best := make(map[core.ID]core.RankedChunk)
	ids := make([]core.ID, 0)
	for _, c := range chunks {
		id := c.Chunk.Meta.ArticleID
		if _, ok := best[id]; ok {
			continue
		}
		best[id] = c
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		monitor.Finish(nil)
		return []*Result{}, nil
	}

	articles, err := s.articles.GetArticles(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving articles", "count", len(ids), "err", err)
		return nil, fmt.Errorf("load articles: %w", err)
	}
	monitor.AfterArticleRetrieval(articles)

	queryTerms := terms(query)
	results := make([]*Result, 0, len(articles))
	for _, article := range articles {
		if article == nil || !article.IsActive {
			continue
		}
		hit := best[article.ID]
		r := &Result{
			Article:    article,
			Chunk:      hit.Chunk,
			Similarity: hit.Score,
			Score:      hit.Score,
		}
		if containsAll(article.Title+" "+article.Body, queryTerms) {
			r.Score += verbatimBoost
			monitor.VerbatimHit(r)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Article.Scores.Final > results[j].Article.Scores.Final
	})
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	monitor.Finish(results)

	s.logger.Debug("search finished", "chunks", len(chunks), "count", len(results))
	return results, nil
}
