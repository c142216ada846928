package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/fetch"
	"github.com/poiesic/newswire/storage"
)

const defaultPrefilterWindow = 30 * 24 * time.Hour

// RunTicket answers a trigger. Accepted is false when another run is
// executing; RunID then names that run.
type RunTicket struct {
	Accepted bool
	RunID    string
}

// Orchestrator coordinates ingestion runs.
type Orchestrator struct {
	keywords KeywordSource
	fetcher  fetch.Fetcher
	scorer   Scorer
	articles ArticleWriter
	ledger   storage.URLLedger
	indexer  Indexer

	guard           *RunGuard
	listeners       *listeners
	pool            *ants.Pool
	prefilterWindow time.Duration
	now             func() time.Time
	logger          *slog.Logger

	mu        sync.Mutex
	runID     string
	lastRunID string
	done      chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithGuard supplies the single-flight guard. Default is a fresh guard.
func WithGuard(guard *RunGuard) Option {
	return func(o *Orchestrator) error {
		if guard != nil {
			o.guard = guard
		}
		return nil
	}
}

// WithPrefilterWindow sets how far back the ledger is read to build the
// fetcher's known-URL set. Zero reads the whole ledger. Default is 30 days.
// Candidates are always re-checked against the full ledger before scoring.
func WithPrefilterWindow(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d < 0 {
			return fmt.Errorf("prefilter window must not be negative, got %s", d)
		}
		o.prefilterWindow = d
		return nil
	}
}

// WithClock sets the clock used for collection times.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	keywords KeywordSource,
	fetcher fetch.Fetcher,
	scorer Scorer,
	articles ArticleWriter,
	ledger storage.URLLedger,
	indexer Indexer,
	opts ...Option,
) (*Orchestrator, error) {
	switch {
	case keywords == nil:
		return nil, ErrKeywordSourceRequired
	case fetcher == nil:
		return nil, ErrFetcherRequired
	case scorer == nil:
		return nil, ErrScorerRequired
	case articles == nil:
		return nil, ErrArticleWriterRequired
	case ledger == nil:
		return nil, ErrLedgerRequired
	case indexer == nil:
		return nil, ErrIndexerRequired
	}

	// The guard keeps this at one task; the spare worker absorbs the
	// moment between a run releasing the guard and its task returning.
	pool, err := ants.NewPool(2, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		keywords:        keywords,
		fetcher:         fetcher,
		scorer:          scorer,
		articles:        articles,
		ledger:          ledger,
		indexer:         indexer,
		guard:           NewRunGuard(),
		pool:            pool,
		prefilterWindow: defaultPrefilterWindow,
		now:             time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			pool.Release()
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "orchestrator")
	o.listeners = newListeners(o.logger)
	return o, nil
}

// Subscribe registers sink for progress events. A sink that subscribes
// while a run is executing first receives an event with percentage -1.
// Sinks are closed and forgotten when a run ends; the returned function
// removes the sink earlier.
func (o *Orchestrator) Subscribe(sink Sink) func() {
	return o.listeners.add(sink, o.guard.Running)
}

// StartRun starts a run in the background and returns at once. If a run
// is already executing the trigger is rejected, not queued.
func (o *Orchestrator) StartRun(ctx context.Context) (RunTicket, error) {
	if o.closed.Load() {
		return RunTicket{}, ErrClosed
	}
	if !o.guard.TryStart() {
		o.mu.Lock()
		current := o.runID
		o.mu.Unlock()
		o.logger.Debug("run rejected", "err", ErrRunInProgress, "run_id", current)
		return RunTicket{Accepted: false, RunID: current}, nil
	}

	runID := uuid.NewString()
	done := make(chan struct{})
	o.mu.Lock()
	o.runID = runID
	o.done = done
	o.mu.Unlock()

	// the run outlives the trigger's request
	runCtx := context.WithoutCancel(ctx)
	err := o.pool.Submit(func() {
		defer close(done)
		o.execute(runCtx, runID)
	})
	if err != nil {
		close(done)
		o.listeners.finish(newProgressTracker(0).failed("failed to start ingestion run"), func() {
			o.guard.Release(false)
		})
		return RunTicket{}, fmt.Errorf("submit run: %w", err)
	}
	return RunTicket{Accepted: true, RunID: runID}, nil
}

// Wait blocks until the most recently started run has ended.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a run is executing.
func (o *Orchestrator) Running() bool {
	return o.guard.Running()
}

// Status summarizes the store and the run state.
func (o *Orchestrator) Status(ctx context.Context) (core.RunStatus, error) {
	total, err := o.articles.CountArticles(ctx, time.Time{})
	if err != nil {
		return core.RunStatus{}, fmt.Errorf("count articles: %w", err)
	}
	now := o.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := o.articles.CountArticles(ctx, midnight)
	if err != nil {
		return core.RunStatus{}, fmt.Errorf("count today's articles: %w", err)
	}
	active, err := o.keywords.ListKeywords(ctx, core.KeywordActive)
	if err != nil {
		return core.RunStatus{}, fmt.Errorf("list active keywords: %w", err)
	}

	o.mu.Lock()
	lastRunID := o.lastRunID
	o.mu.Unlock()

	return core.RunStatus{
		Running:            o.guard.Running(),
		TotalArticles:      total,
		TodayArticles:      today,
		ActiveKeywordCount: len(active),
		LastCompletedAt:    o.guard.LastCompletedAt(),
		LastRunID:          lastRunID,
		LLMFallbacks:       o.scorer.Stats().DefaultedLLM,
	}, nil
}

// Close rejects new runs, waits for the current one and releases workers.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.closed.Store(true)
		o.Wait()
		o.pool.Release()
	})
	return nil
}

// execute performs one run. Whatever happens, every sink receives a
// terminal event and the guard is released.
func (o *Orchestrator) execute(ctx context.Context, runID string) {
	logger := o.logger.With("run_id", runID)
	var tracker *progressTracker
	terminal := newProgressTracker(0).failed("ingestion run aborted")
	succeeded := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingestion run panicked", "panic", r)
			if tracker != nil {
				terminal = tracker.failed(fmt.Sprintf("ingestion run failed: %v", r))
			}
			succeeded = false
		}
		o.mu.Lock()
		o.lastRunID = runID
		o.runID = ""
		o.mu.Unlock()
		o.listeners.finish(terminal, func() { o.guard.Release(succeeded) })
	}()

	keywords, err := o.keywords.ListKeywords(ctx, core.KeywordActive)
	if err != nil {
		logger.Error("ingestion run failed", "err", err)
		terminal = newProgressTracker(0).failed(fmt.Sprintf("failed to load keywords: %v", err))
		return
	}
	if len(keywords) == 0 {
		logger.Info("ingestion run skipped", "err", ErrNoActiveKeywords)
		terminal = newProgressTracker(0).completed(0, "No active keywords to ingest")
		succeeded = true
		return
	}

	tracker = newProgressTracker(len(keywords))
	names := make([]string, len(keywords))
	for i, kw := range keywords {
		names[i] = kw.Name
	}

	logger.Info("ingestion run started", "keywords", len(keywords))
	o.listeners.broadcast(tracker.started())

	total := 0
	failures := 0
	for step, kw := range keywords {
		saved, err := o.ingestKeyword(ctx, tracker, step, kw.Name, names)
		if err != nil {
			failures++
			logger.Error("keyword ingestion failed", "keyword", kw.Name, "err", err)
			o.listeners.broadcast(tracker.keyword(core.EventError, step, kw.Name,
				fmt.Sprintf("Ingestion failed for %s: %v", kw.Name, err), nil))
			continue
		}
		total += saved
	}

	message := fmt.Sprintf("Ingestion completed: %d new articles", total)
	if failures > 0 {
		message = fmt.Sprintf("%s, %d keywords failed", message, failures)
	}
	terminal = tracker.completed(total, message)
	succeeded = true
	logger.Info("ingestion run completed", "count", total, "failed_keywords", failures, "elapsed", tracker.elapsed())
}

// ingestKeyword runs the pipeline for one keyword and returns how many
// articles were saved.
func (o *Orchestrator) ingestKeyword(ctx context.Context, tracker *progressTracker, step int, keyword string, activeNames []string) (int, error) {
	emit := func(t core.EventType, message string, count *int) {
		o.listeners.broadcast(tracker.keyword(t, step, keyword, message, count))
	}
	emit(core.EventKeywordBegin, fmt.Sprintf("Processing keyword %s", keyword), nil)

	var since time.Time
	if o.prefilterWindow > 0 {
		since = o.now().Add(-o.prefilterWindow)
	}
	known, err := o.ledger.KnownSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load known urls: %w", err)
	}

	items, err := o.fetcher.Fetch(ctx, keyword, known)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	emit(core.EventCrawlDone, fmt.Sprintf("Fetched %d candidates", len(items)), countOf(len(items)))

	fresh, err := o.filterNew(ctx, items)
	if err != nil {
		return 0, err
	}
	emit(core.EventFilterDone, fmt.Sprintf("%d new after deduplication", len(fresh)), countOf(len(fresh)))

	if len(fresh) == 0 {
		emit(core.EventKeywordComplete, fmt.Sprintf("No new articles for %s", keyword), countOf(0))
		return 0, nil
	}

	emit(core.EventAIEvalBegin, fmt.Sprintf("Evaluating %d articles", len(fresh)), countOf(len(fresh)))
	articles, err := o.assemble(ctx, keyword, fresh, activeNames)
	if err != nil {
		return 0, err
	}

	saved, err := o.articles.SaveArticles(ctx, articles...)
	if err != nil {
		return 0, fmt.Errorf("save articles: %w", err)
	}
	urls := make([]string, len(articles))
	for i, a := range articles {
		urls[i] = a.URL
	}
	if err := o.ledger.Append(ctx, urls...); err != nil {
		return 0, fmt.Errorf("append ledger: %w", err)
	}
	emit(core.EventSaveDone, fmt.Sprintf("Saved %d articles", len(saved)), countOf(len(saved)))

	for _, article := range saved {
		if _, err := o.indexer.AddOrUpdate(ctx, article); err != nil {
			o.logger.Warn("indexing article failed", "url", article.URL, "err", err)
		}
	}

	emit(core.EventKeywordComplete, fmt.Sprintf("Completed %s: %d new articles", keyword, len(saved)), countOf(len(saved)))
	return len(saved), nil
}

// filterNew normalizes candidate URLs, drops duplicates within the batch
// and drops every URL the ledger already holds.
func (o *Orchestrator) filterNew(ctx context.Context, items []core.RawItem) ([]core.RawItem, error) {
	seen := make(map[string]struct{}, len(items))
	candidates := make([]core.RawItem, 0, len(items))
	for _, item := range items {
		u, err := core.NormalizeURL(item.URL)
		if err != nil || strings.TrimSpace(item.Title) == "" {
			o.logger.Debug("dropping malformed candidate", "url", item.URL)
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		item.URL = u
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	urls := make([]string, len(candidates))
	for i, item := range candidates {
		urls[i] = item.URL
	}
	existing, err := o.ledger.Existing(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("check ledger: %w", err)
	}

	fresh := candidates[:0]
	for _, item := range candidates {
		if _, ok := existing[item.URL]; !ok {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

// assemble scores items and builds the article rows.
func (o *Orchestrator) assemble(ctx context.Context, keyword string, items []core.RawItem, activeNames []string) ([]*core.Article, error) {
	collectedAt := o.now().UTC()
	articles := make([]*core.Article, len(items))
	for i, item := range items {
		articles[i] = &core.Article{
			ID:          core.IDFromContent(item.URL),
			Title:       strings.TrimSpace(item.Title),
			URL:         item.URL,
			Keyword:     keyword,
			Body:        item.Body,
			CollectedAt: collectedAt,
			IsActive:    true,
		}
	}

	evaluations := o.scorer.ScoreBatch(ctx, articles, activeNames)
	if len(evaluations) != len(articles) {
		return nil, fmt.Errorf("%w: scored %d of %d articles", ErrScoreMismatch, len(evaluations), len(articles))
	}
	for i, eval := range evaluations {
		a := articles[i]
		a.Scores = eval.Scores
		a.Category = eval.Category
		a.AIReason = eval.Reason
		a.Summary = eval.Summary
	}
	return articles, nil
}
