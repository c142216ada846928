package scoring

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
)

const (
	defaultBatchSize     = 10
	defaultFallbackDelay = 500 * time.Millisecond
)

// Evaluation is the outcome of scoring one article.
type Evaluation struct {
	Scores   core.ScoreBreakdown
	Category string
	Reason   string
	Summary  string
	// Fallback is true when the LLM signal used default sub-scores
	// because no usable evaluation came back.
	Fallback bool
}

// Stats counts degraded evaluations since the scorer was created.
type Stats struct {
	// DefaultedLLM is the number of articles scored with default LLM sub-scores.
	DefaultedLLM int64
	// IndividualFallbacks is the number of articles re-evaluated one by one
	// after a batch reply omitted them or could not be parsed.
	IndividualFallbacks int64
}

// Scorer computes importance scores from an LLM signal, a structural
// signal and a source-trust signal. It is safe for concurrent use.
type Scorer struct {
	completer     ai.Completer
	embedder      ai.Embedder
	batchSize     int
	fallbackDelay time.Duration
	tiers         DomainTiers
	defaults      Defaults
	logger        *slog.Logger

	defaulted atomic.Int64
	fallbacks atomic.Int64
}

// Option configures a Scorer.
type Option func(*Scorer) error

// WithBatchSize sets how many articles one batch completion evaluates.
// Default is 10.
func WithBatchSize(size int) Option {
	return func(s *Scorer) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		s.batchSize = size
		return nil
	}
}

// WithFallbackDelay sets the pause between per-article completion calls
// made after a batch reply is incomplete. Zero disables the pause.
// Default is 500ms.
func WithFallbackDelay(d time.Duration) Option {
	return func(s *Scorer) error {
		if d < 0 {
			d = 0
		}
		s.fallbackDelay = d
		return nil
	}
}

// WithDomainTiers replaces the source-trust allow-lists.
func WithDomainTiers(tiers DomainTiers) Option {
	return func(s *Scorer) error {
		s.tiers = tiers
		return nil
	}
}

// WithDefaults replaces the sub-scores used when the LLM gives no answer.
func WithDefaults(d Defaults) Option {
	return func(s *Scorer) error {
		s.defaults = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScorer creates a scorer.
func NewScorer(completer ai.Completer, embedder ai.Embedder, opts ...Option) (*Scorer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Scorer{
		completer:     completer,
		embedder:      embedder,
		batchSize:     defaultBatchSize,
		fallbackDelay: defaultFallbackDelay,
		tiers:         DefaultDomainTiers(),
		defaults:      DefaultDefaults(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scorer")
	return s, nil
}

// Score evaluates a single article against the active keyword list.
// Upstream failures degrade individual signals and are never returned.
func (s *Scorer) Score(ctx context.Context, article *core.Article, keywords []string) Evaluation {
	keywords = distinctKeywords(keywords)
	kwVector := s.keywordVector(ctx, keywords)
	return s.score(ctx, article, keywords, kwVector)
}

func (s *Scorer) score(ctx context.Context, article *core.Article, keywords []string, kwVector []float32) Evaluation {
	v, err := s.evaluateOne(ctx, article)
	if err != nil {
		s.logger.Warn("llm evaluation failed, using default sub-scores", "url", article.URL, "err", err)
		v = nil
	}
	return s.assemble(ctx, article, keywords, kwVector, v)
}

// ScoreBatch evaluates articles with as few completion calls as possible.
// The result has the same length and order as articles.
func (s *Scorer) ScoreBatch(ctx context.Context, articles []*core.Article, keywords []string) []Evaluation {
	if len(articles) == 0 {
		return []Evaluation{}
	}
	if len(articles) == 1 {
		return []Evaluation{s.Score(ctx, articles[0], keywords)}
	}

	keywords = distinctKeywords(keywords)
	kwVector := s.keywordVector(ctx, keywords)

	verdicts := make([]*verdict, len(articles))
	settled := make([]bool, len(articles))
	for _, span := range partition(len(articles), s.batchSize) {
		start, end := span[0], span[1]
		if end-start == 1 {
			v, err := s.evaluateOne(ctx, articles[start])
			if err != nil {
				s.logger.Warn("llm evaluation failed, using default sub-scores", "url", articles[start].URL, "err", err)
			}
			verdicts[start] = v
			settled[start] = true
			continue
		}
		copy(verdicts[start:end], s.evaluateBatch(ctx, articles[start:end]))
	}

	s.fillMissing(ctx, articles, verdicts, settled)

	results := make([]Evaluation, len(articles))
	for i, article := range articles {
		results[i] = s.assemble(ctx, article, keywords, kwVector, verdicts[i])
	}
	return results
}

// Stats returns counters of degraded evaluations.
func (s *Scorer) Stats() Stats {
	return Stats{
		DefaultedLLM:        s.defaulted.Load(),
		IndividualFallbacks: s.fallbacks.Load(),
	}
}

func (s *Scorer) assemble(ctx context.Context, article *core.Article, keywords []string, kwVector []float32, v *verdict) Evaluation {
	llm, defaulted := s.llmSignal(v)
	if defaulted {
		s.defaulted.Add(1)
	}
	structural := s.structuralSignal(ctx, article, keywords, kwVector)
	metadata := s.tiers.Score(article.URL)

	eval := Evaluation{
		Scores:   core.NewScoreBreakdown(llm, structural, metadata),
		Category: s.defaults.Category,
		Fallback: defaulted,
	}
	if v != nil {
		if c := strings.TrimSpace(v.Category); c != "" {
			eval.Category = c
		}
		eval.Reason = strings.TrimSpace(v.Reason)
		eval.Summary = strings.TrimSpace(v.Summary)
	}
	if defaulted && eval.Reason == "" {
		eval.Reason = s.defaults.Reason
	}
	return eval
}
