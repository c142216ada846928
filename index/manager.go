package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

const (
	defaultFlushInterval  = 30 * time.Second
	defaultEmbedBatchSize = 32
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
	releaseTimeout        = 30 * time.Second
)

// ArticleSource supplies candidate articles for a rebuild.
type ArticleSource interface {
	EligibleArticles(ctx context.Context, keywords []string, since time.Time, minScore int) ([]*core.Article, error)
}

// KeywordLookup supplies keywords by status.
type KeywordLookup interface {
	ListKeywords(ctx context.Context, statuses ...core.KeywordStatus) ([]*core.Keyword, error)
}

// Filter narrows search results. Zero fields match everything.
type Filter struct {
	Keyword  string
	MinScore int
	Category string
}

func (f *Filter) match(meta *core.ChunkMetadata) bool {
	if f == nil {
		return true
	}
	if f.Keyword != "" && !strings.EqualFold(f.Keyword, meta.Keyword) {
		return false
	}
	if meta.Score < f.MinScore {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, meta.Category) {
		return false
	}
	return true
}

// Manager maintains the in-memory retrieval index and its durable snapshot.
//
// Single-article updates mark the index dirty and are persisted by a
// periodic flush. Rebuilds construct a complete replacement off to the side,
// persist it, then swap it in; a failed rebuild leaves the previous index
// serving.
type Manager struct {
	articles ArticleSource
	keywords KeywordLookup
	embedder ai.Embedder
	store    storage.ChunkStore

	policy         Policy
	chunker        Chunker
	flushInterval  time.Duration
	embedBatchSize int
	maxRetries     int
	retryBaseDelay time.Duration
	startRebuild   bool
	monitor        SearchMonitor
	logger         *slog.Logger

	current atomic.Pointer[snapshot]
	dirty   atomic.Bool

	// writeMu guards snapshot replacement and the pending set
	writeMu    sync.Mutex
	rebuilding bool
	pending    map[core.ID]*core.Article

	// rebuildMu serializes rebuilds
	rebuildMu     sync.Mutex
	rebuildQueued atomic.Bool

	// saveMu orders writes to the chunk store
	saveMu sync.Mutex

	pool      *ants.Pool
	ctx       context.Context
	cancel    context.CancelFunc
	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager) error

// WithPolicy sets the eligibility policy.
func WithPolicy(p Policy) Option {
	return func(m *Manager) error {
		m.policy = p
		return nil
	}
}

// WithChunker sets the chunking parameters.
func WithChunker(c Chunker) Option {
	return func(m *Manager) error {
		m.chunker = c.normalized()
		return nil
	}
}

// WithFlushInterval sets how often a dirty index is persisted.
// Default is 30s.
func WithFlushInterval(d time.Duration) Option {
	return func(m *Manager) error {
		if d <= 0 {
			return fmt.Errorf("flush interval must be positive, got %s", d)
		}
		m.flushInterval = d
		return nil
	}
}

// WithEmbedBatchSize sets how many chunk texts go into one embedding call.
// Default is 32.
func WithEmbedBatchSize(size int) Option {
	return func(m *Manager) error {
		if size < 1 {
			size = 1
		}
		m.embedBatchSize = size
		return nil
	}
}

// WithRetry sets the retry policy for embedding calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(m *Manager) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		m.maxRetries = maxAttempts
		m.retryBaseDelay = baseDelay
		return nil
	}
}

// WithStartupRebuild controls whether Start queues a rebuild after loading
// the snapshot. Default is true.
func WithStartupRebuild(enabled bool) Option {
	return func(m *Manager) error {
		m.startRebuild = enabled
		return nil
	}
}

// WithMonitor sets a search monitor.
func WithMonitor(monitor SearchMonitor) Option {
	return func(m *Manager) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		m.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewManager creates an index manager. Call Start to load the durable
// snapshot and begin background flushing.
func NewManager(articles ArticleSource, keywords KeywordLookup, embedder ai.Embedder, store storage.ChunkStore, opts ...Option) (*Manager, error) {
	if articles == nil {
		return nil, ErrArticleSourceRequired
	}
	if keywords == nil {
		return nil, ErrKeywordLookupRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	// One rebuild runs while at most one more waits. Only the caller that
	// queues a rebuild submits, so a single blocked submitter is enough to
	// ride out a worker that has not returned to the pool yet.
	pool, err := ants.NewPool(2, ants.WithMaxBlockingTasks(1))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		articles:       articles,
		keywords:       keywords,
		embedder:       embedder,
		store:          store,
		policy:         DefaultPolicy(),
		chunker:        DefaultChunker(),
		flushInterval:  defaultFlushInterval,
		embedBatchSize: defaultEmbedBatchSize,
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBaseDelay,
		startRebuild:   true,
		monitor:        &noopMonitor{},
		logger:         slog.Default(),
		pool:           pool,
		ctx:            ctx,
		cancel:         cancel,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			pool.Release()
			cancel()
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "index")
	m.current.Store(newSnapshot(nil))
	return m, nil
}

// Start loads the last durable snapshot so searches are served right away,
// starts the flush loop and, unless disabled, queues a rebuild.
func (m *Manager) Start(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	var err error
	m.startOnce.Do(func() {
		var chunks []core.IndexedChunk
		chunks, err = m.store.LoadChunks(ctx)
		if err != nil {
			err = fmt.Errorf("load snapshot: %w", err)
			return
		}
		m.writeMu.Lock()
		m.current.Store(newSnapshot(chunks))
		m.writeMu.Unlock()
		m.logger.Info("index snapshot loaded", "chunks", len(chunks))

		m.wg.Add(1)
		go m.flushLoop()

		if m.startRebuild {
			m.RebuildAsync()
		}
	})
	return err
}

func (m *Manager) flushLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if _, err := m.Flush(m.ctx); err != nil {
				m.logger.Error("index flush failed", "err", err)
			}
		}
	}
}

// Flush persists the index if it changed since the last write. Returns
// whether a write happened.
func (m *Manager) Flush(ctx context.Context) (bool, error) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if !m.dirty.CompareAndSwap(true, false) {
		return false, nil
	}
	snap := m.current.Load()
	if err := m.store.SaveChunks(ctx, snap.chunks); err != nil {
		m.dirty.Store(true)
		return false, fmt.Errorf("save snapshot: %w", err)
	}
	m.logger.Debug("index flushed", "chunks", len(snap.chunks))
	return true, nil
}

// AddOrUpdate indexes a single article if the policy admits it, replacing
// any chunks it already had. Returns whether the article was indexed. An
// article that is no longer eligible is left as it is; only Rebuild
// removes entries.
func (m *Manager) AddOrUpdate(ctx context.Context, article *core.Article) (bool, error) {
	if m.closed.Load() {
		return false, ErrClosed
	}
	active, err := m.activeKeywords(ctx)
	if err != nil {
		return false, err
	}
	if !m.policy.Eligible(article, statusOf(active, article.Keyword)) {
		return false, nil
	}

	chunks := m.chunker.Chunk(article)
	if err := m.embedChunks(ctx, m.current.Load(), chunks); err != nil {
		return false, err
	}

	m.writeMu.Lock()
	if m.rebuilding {
		copied := *article
		m.pending[article.ID] = &copied
	}
	m.current.Store(m.current.Load().replaceArticle(article.ID, chunks))
	m.dirty.Store(true)
	m.writeMu.Unlock()

	m.logger.Debug("article indexed", "url", article.URL, "chunks", len(chunks))
	return true, nil
}

// Rebuild replaces the index with one built from every eligible article
// and persists it before it becomes visible.
func (m *Manager) Rebuild(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()
	return m.rebuild(ctx)
}

// RebuildAsync queues a rebuild on the background pool. It waits only for a
// worker that is still finishing a previous rebuild. Triggers that arrive
// while a rebuild is already queued are merged into it.
func (m *Manager) RebuildAsync() {
	if m.closed.Load() {
		return
	}
	if !m.rebuildQueued.CompareAndSwap(false, true) {
		m.logger.Debug("rebuild already queued")
		return
	}
	err := m.pool.Submit(func() {
		m.rebuildMu.Lock()
		defer m.rebuildMu.Unlock()
		m.rebuildQueued.Store(false)
		if err := m.rebuild(m.ctx); err != nil {
			m.logger.Error("index rebuild failed, previous index kept", "err", err)
		}
	})
	if err != nil {
		m.rebuildQueued.Store(false)
		m.logger.Error("failed to queue index rebuild", "err", err)
	}
}

func (m *Manager) rebuild(ctx context.Context) error {
	start := time.Now()

	m.writeMu.Lock()
	m.rebuilding = true
	m.pending = make(map[core.ID]*core.Article)
	m.writeMu.Unlock()

	next, active, err := m.buildSnapshot(ctx)
	if err != nil {
		m.endRebuild()
		return err
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if err := m.store.SaveChunks(ctx, next.chunks); err != nil {
		m.endRebuild()
		return fmt.Errorf("save snapshot: %w", err)
	}

	m.writeMu.Lock()
	cur := m.current.Load()
	for id, article := range m.pending {
		if !m.policy.Eligible(article, statusOf(active, article.Keyword)) {
			continue
		}
		next = next.replaceArticle(id, cur.articleChunks(id))
	}
	// the saved snapshot lacks articles added while rebuilding
	m.dirty.Store(len(m.pending) > 0)
	m.current.Store(next)
	m.rebuilding = false
	m.pending = nil
	m.writeMu.Unlock()

	m.logger.Info("index rebuilt",
		"articles", next.articleCount(),
		"chunks", len(next.chunks),
		"keywords", len(active),
		"elapsed", time.Since(start))
	return nil
}

func (m *Manager) endRebuild() {
	m.writeMu.Lock()
	m.rebuilding = false
	m.pending = nil
	m.writeMu.Unlock()
}

// buildSnapshot assembles a complete index from the article source.
func (m *Manager) buildSnapshot(ctx context.Context) (*snapshot, activeSet, error) {
	active, err := m.activeKeywords(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(active) == 0 {
		return newSnapshot(nil), active, nil
	}

	names := make([]string, 0, len(active))
	for _, name := range active {
		names = append(names, name)
	}
	articles, err := m.articles.EligibleArticles(ctx, names, m.policy.Since(), m.policy.MinScore)
	if err != nil {
		return nil, nil, fmt.Errorf("load eligible articles: %w", err)
	}

	var chunks []core.IndexedChunk
	for _, article := range articles {
		if !m.policy.Eligible(article, statusOf(active, article.Keyword)) {
			continue
		}
		chunks = append(chunks, m.chunker.Chunk(article)...)
	}
	if err := m.embedChunks(ctx, m.current.Load(), chunks); err != nil {
		return nil, nil, err
	}
	return newSnapshot(chunks), active, nil
}

// activeSet maps lowercased ACTIVE keyword names to their stored spelling.
type activeSet map[string]string

func (m *Manager) activeKeywords(ctx context.Context) (activeSet, error) {
	keywords, err := m.keywords.ListKeywords(ctx, core.KeywordActive)
	if err != nil {
		return nil, fmt.Errorf("list active keywords: %w", err)
	}
	active := make(activeSet, len(keywords))
	for _, kw := range keywords {
		active[strings.ToLower(kw.Name)] = kw.Name
	}
	return active, nil
}

func statusOf(active activeSet, keyword string) core.KeywordStatus {
	if _, ok := active[strings.ToLower(keyword)]; ok {
		return core.KeywordActive
	}
	return ""
}

// embedChunks fills in chunk vectors, reusing vectors from prev when a
// chunk's text is unchanged.
func (m *Manager) embedChunks(ctx context.Context, prev *snapshot, chunks []core.IndexedChunk) error {
	var missing []int
	for i := range chunks {
		if vec, ok := prev.reusableVector(&chunks[i]); ok {
			chunks[i].Vector = vec
			continue
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += m.embedBatchSize {
		end := min(start+m.embedBatchSize, len(missing))
		batch := missing[start:end]

		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = chunks[idx].Text
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			vectors, err = m.embedder.EmbedTexts(ctx, texts)
			return err
		}, m.maxRetries, m.retryBaseDelay)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings after %d attempts: %w", m.maxRetries, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(batch), len(vectors))
		}
		for j, idx := range batch {
			chunks[idx].Vector = ai.NormalizeVector(vectors[j])
		}
	}
	return nil
}

// Search returns up to topK chunks whose similarity to query is at least
// threshold, best first.
func (m *Manager) Search(ctx context.Context, query string, topK int, threshold float32, filter *Filter) ([]core.RankedChunk, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	m.monitor.Start(query, topK, threshold)

	snap := m.current.Load()
	if len(snap.chunks) == 0 {
		m.monitor.Finish(nil)
		return []core.RankedChunk{}, nil
	}

	vec, err := m.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec = ai.NormalizeVector(vec)
	m.monitor.AfterQueryEmbedding(vec)

	var results []core.RankedChunk
	for i := range snap.chunks {
		chunk := &snap.chunks[i]
		if !filter.match(&chunk.Meta) {
			continue
		}
		score := ai.DotProduct(vec, chunk.Vector)
		if score < threshold {
			continue
		}
		hit := core.RankedChunk{Chunk: *chunk, Score: score}
		m.monitor.Hit(hit)
		results = append(results, hit)
	}

	slices.SortStableFunc(results, func(a, b core.RankedChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []core.RankedChunk{}
	}

	m.monitor.Finish(results)
	return results, nil
}

// Size returns the number of chunks currently indexed.
func (m *Manager) Size() int {
	return len(m.current.Load().chunks)
}

// Dirty reports whether the index has unpersisted changes.
func (m *Manager) Dirty() bool {
	return m.dirty.Load()
}

// Close stops background work, waits for a running rebuild and performs a
// final flush if the index is dirty. The chunk store is not closed.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.stopCh)
		m.wg.Wait()

		if releaseErr := m.pool.ReleaseTimeout(releaseTimeout); releaseErr != nil {
			m.logger.Warn("rebuild pool did not drain", "err", releaseErr)
		}
		m.cancel()

		_, err = m.Flush(context.Background())
		m.logger.Debug("index manager closed")
	})
	return err
}
