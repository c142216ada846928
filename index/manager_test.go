package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/newswire/ai/mock"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// fakeArticles returns every stored article for the requested keywords,
// leaving the age and score checks to the manager's policy.
type fakeArticles struct {
	mu       sync.Mutex
	articles []*core.Article
	err      error
}

func (f *fakeArticles) EligibleArticles(ctx context.Context, keywords []string, since time.Time, minScore int) ([]*core.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*core.Article
	for _, a := range f.articles {
		for _, k := range keywords {
			if strings.EqualFold(k, a.Keyword) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeArticles) add(articles ...*core.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append(f.articles, articles...)
}

type fakeKeywords struct {
	mu       sync.Mutex
	keywords map[string]core.KeywordStatus
	gate     chan struct{}
	calls    atomic.Int32
}

func newFakeKeywords(pairs ...any) *fakeKeywords {
	f := &fakeKeywords{keywords: map[string]core.KeywordStatus{}}
	for i := 0; i < len(pairs); i += 2 {
		f.keywords[pairs[i].(string)] = pairs[i+1].(core.KeywordStatus)
	}
	return f
}

func (f *fakeKeywords) ListKeywords(ctx context.Context, statuses ...core.KeywordStatus) ([]*core.Keyword, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*core.Keyword
	for name, status := range f.keywords {
		for _, s := range statuses {
			if s == status {
				out = append(out, &core.Keyword{Name: name, Status: status})
			}
		}
	}
	return out, nil
}

func (f *fakeKeywords) set(name string, status core.KeywordStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords[name] = status
}

func testArticle(url, keyword string, final int, age time.Duration) *core.Article {
	return &core.Article{
		ID:          core.IDFromContent(url),
		Title:       "Story " + url,
		URL:         url,
		Keyword:     keyword,
		Body:        strings.Repeat("Body text for "+url+". ", 10),
		Scores:      core.ScoreBreakdown{Final: final},
		Category:    "Tech",
		CollectedAt: testNow.Add(-age),
		IsActive:    true,
	}
}

type fixture struct {
	manager  *Manager
	articles *fakeArticles
	keywords *fakeKeywords
	embedder *mock.MockEmbedder
	store    *badger.ChunkStore
}

func newFixture(t *testing.T, keywords *fakeKeywords, opts ...Option) *fixture {
	t.Helper()
	store, err := badger.NewMemoryChunkStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	policy := DefaultPolicy()
	policy.Now = func() time.Time { return testNow }

	f := &fixture{
		articles: &fakeArticles{},
		keywords: keywords,
		embedder: mock.NewMockEmbedder(),
		store:    store,
	}
	opts = append([]Option{WithPolicy(policy), WithRetry(1, time.Millisecond), WithFlushInterval(time.Hour)}, opts...)
	f.manager, err = NewManager(f.articles, f.keywords, f.embedder, f.store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.manager.Close() })
	return f
}

func (f *fixture) storedArticleIDs(t *testing.T) map[core.ID]bool {
	t.Helper()
	chunks, err := f.store.LoadChunks(context.Background())
	require.NoError(t, err)
	ids := map[core.ID]bool{}
	for _, c := range chunks {
		ids[c.Meta.ArticleID] = true
	}
	return ids
}

func indexedArticleIDs(m *Manager) map[core.ID]bool {
	ids := map[core.ID]bool{}
	for _, c := range m.current.Load().chunks {
		ids[c.Meta.ArticleID] = true
	}
	return ids
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	store, err := badger.NewMemoryChunkStore()
	require.NoError(t, err)
	defer store.Close()
	embedder := mock.NewMockEmbedder()

	_, err = NewManager(nil, newFakeKeywords(), embedder, store)
	assert.ErrorIs(t, err, ErrArticleSourceRequired)
	_, err = NewManager(&fakeArticles{}, nil, embedder, store)
	assert.ErrorIs(t, err, ErrKeywordLookupRequired)
	_, err = NewManager(&fakeArticles{}, newFakeKeywords(), nil, store)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewManager(&fakeArticles{}, newFakeKeywords(), embedder, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestManager_RebuildAppliesEligibility(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive, "Chips", core.KeywordPaused))

	eligible := testArticle("https://example.org/eligible", "AI", 40, 6*day)
	paused := testArticle("https://example.org/paused", "Chips", 40, 6*day)
	old := testArticle("https://example.org/old", "AI", 40, 8*day)
	low := testArticle("https://example.org/low", "AI", 39, 6*day)
	f.articles.add(eligible, paused, old, low)

	require.NoError(t, f.manager.Rebuild(ctx))

	want := map[core.ID]bool{eligible.ID: true}
	assert.Equal(t, want, indexedArticleIDs(f.manager))
	assert.Equal(t, want, f.storedArticleIDs(t))
	assert.False(t, f.manager.Dirty())
}

func TestManager_AddOrUpdateIsLazilyPersisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive))
	article := testArticle("https://example.org/a", "ai", 55, time.Hour)

	added, err := f.manager.AddOrUpdate(ctx, article)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, f.manager.Dirty())
	assert.Positive(t, f.manager.Size())
	assert.Empty(t, f.storedArticleIDs(t))

	flushed, err := f.manager.Flush(ctx)
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.True(t, f.storedArticleIDs(t)[article.ID])

	flushed, err = f.manager.Flush(ctx)
	require.NoError(t, err)
	assert.False(t, flushed, "clean index must not be written again")
}

func TestManager_AddOrUpdateReplacesChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive))
	article := testArticle("https://example.org/a", "AI", 55, time.Hour)

	_, err := f.manager.AddOrUpdate(ctx, article)
	require.NoError(t, err)
	before := f.manager.Size()

	_, err = f.manager.AddOrUpdate(ctx, article)
	require.NoError(t, err)
	assert.Equal(t, before, f.manager.Size())
}

func TestManager_AddOrUpdateSkipsIneligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive, "Chips", core.KeywordPaused))

	for _, a := range []*core.Article{
		testArticle("https://example.org/low", "AI", 39, time.Hour),
		testArticle("https://example.org/paused", "Chips", 90, time.Hour),
		testArticle("https://example.org/unknown", "Quantum", 90, time.Hour),
	} {
		added, err := f.manager.AddOrUpdate(ctx, a)
		require.NoError(t, err)
		assert.False(t, added, a.URL)
	}
	assert.Zero(t, f.manager.Size())
	assert.False(t, f.manager.Dirty())
}

func TestManager_AddOrUpdateDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	keywords := newFakeKeywords("AI", core.KeywordActive)
	f := newFixture(t, keywords)
	article := testArticle("https://example.org/a", "AI", 55, time.Hour)
	f.articles.add(article)

	_, err := f.manager.AddOrUpdate(ctx, article)
	require.NoError(t, err)

	keywords.set("AI", core.KeywordArchived)
	added, err := f.manager.AddOrUpdate(ctx, article)
	require.NoError(t, err)
	assert.False(t, added)
	assert.True(t, indexedArticleIDs(f.manager)[article.ID], "only a rebuild removes entries")

	require.NoError(t, f.manager.Rebuild(ctx))
	assert.Zero(t, f.manager.Size())
}

func TestManager_RebuildWithoutActiveKeywordsPersistsEmpty(t *testing.T) {
	ctx := context.Background()
	keywords := newFakeKeywords("AI", core.KeywordActive)
	f := newFixture(t, keywords)
	f.articles.add(testArticle("https://example.org/a", "AI", 55, time.Hour))

	require.NoError(t, f.manager.Rebuild(ctx))
	require.NotEmpty(t, f.storedArticleIDs(t))

	keywords.set("AI", core.KeywordPaused)
	require.NoError(t, f.manager.Rebuild(ctx))
	assert.Zero(t, f.manager.Size())
	assert.Empty(t, f.storedArticleIDs(t))
}

func TestManager_FailedRebuildKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive))
	first := testArticle("https://example.org/first", "AI", 55, time.Hour)
	f.articles.add(first)
	require.NoError(t, f.manager.Rebuild(ctx))
	size := f.manager.Size()

	f.articles.add(testArticle("https://example.org/second", "AI", 55, time.Hour))
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	require.Error(t, f.manager.Rebuild(ctx))
	assert.Equal(t, size, f.manager.Size())
	assert.Equal(t, map[core.ID]bool{first.ID: true}, f.storedArticleIDs(t))

	f.articles.err = errors.New("database locked")
	require.Error(t, f.manager.Rebuild(ctx))
	assert.Equal(t, size, f.manager.Size())
}

func TestManager_RebuildReusesVectors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive))
	f.articles.add(testArticle("https://example.org/a", "AI", 55, time.Hour))

	var embedded atomic.Int32
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		embedded.Add(int32(len(texts)))
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}

	require.NoError(t, f.manager.Rebuild(ctx))
	first := embedded.Load()
	require.Positive(t, first)

	f.articles.add(testArticle("https://example.org/b", "AI", 55, time.Hour))
	require.NoError(t, f.manager.Rebuild(ctx))
	assert.Equal(t, 2*first, embedded.Load(), "only the new article should be embedded")
}

func TestManager_Search(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive, "Chips", core.KeywordActive))

	axis := func(text string) []float32 {
		switch {
		case strings.Contains(text, "alpha"):
			return []float32{1, 0, 0}
		case strings.Contains(text, "beta"):
			return []float32{0.8, 0.6, 0}
		default:
			return []float32{0, 0, 1}
		}
	}
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return axis(text), nil
	}

	alpha := testArticle("https://example.org/alpha", "AI", 70, time.Hour)
	beta := testArticle("https://example.org/beta", "Chips", 45, time.Hour)
	gamma := testArticle("https://example.org/gamma", "AI", 90, time.Hour)
	f.articles.add(alpha, beta, gamma)
	require.NoError(t, f.manager.Rebuild(ctx))

	results, err := f.manager.Search(ctx, "alpha", 10, 0.5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, alpha.ID, results[0].Chunk.Meta.ArticleID)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0.5))
		assert.NotEqual(t, gamma.ID, r.Chunk.Meta.ArticleID)
	}
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	results, err = f.manager.Search(ctx, "alpha", 1, 0, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = f.manager.Search(ctx, "alpha", 10, 0.5, &Filter{Keyword: "chips"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, beta.ID, r.Chunk.Meta.ArticleID)
	}

	results, err = f.manager.Search(ctx, "alpha", 10, 0, &Filter{MinScore: 80})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, gamma.ID, r.Chunk.Meta.ArticleID)
	}

	_, err = f.manager.Search(ctx, "alpha", 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

type recordingMonitor struct {
	noopMonitor
	started, finished int
	hits              int
}

func (r *recordingMonitor) Start(string, int, float32)        { r.started++ }
func (r *recordingMonitor) Hit(core.RankedChunk)              { r.hits++ }
func (r *recordingMonitor) Finish(results []core.RankedChunk) { r.finished++ }

func TestManager_SearchMonitor(t *testing.T) {
	ctx := context.Background()
	monitor := &recordingMonitor{}
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive), WithMonitor(monitor))
	f.articles.add(testArticle("https://example.org/a", "AI", 55, time.Hour))
	require.NoError(t, f.manager.Rebuild(ctx))

	results, err := f.manager.Search(ctx, "anything", 5, -1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, monitor.started)
	assert.Equal(t, 1, monitor.finished)
	assert.Equal(t, len(results), monitor.hits)
}

func TestManager_StartServesStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	keywords := newFakeKeywords("AI", core.KeywordActive)
	keywords.gate = make(chan struct{})
	f := newFixture(t, keywords)

	stored := make([]core.IndexedChunk, 3)
	for i := range stored {
		id := core.IDFromContent(fmt.Sprintf("https://example.org/%d", i))
		stored[i] = core.IndexedChunk{ID: core.ChunkID(id, 0), Text: "t", Vector: []float32{1}, Meta: core.ChunkMetadata{ArticleID: id}}
	}
	require.NoError(t, f.store.SaveChunks(ctx, stored))

	require.NoError(t, f.manager.Start(ctx))
	// the startup rebuild is blocked on the keyword lookup
	assert.Equal(t, 3, f.manager.Size())

	close(keywords.gate)
	assert.Eventually(t, func() bool { return f.manager.Size() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestManager_StartWithoutRebuild(t *testing.T) {
	ctx := context.Background()
	keywords := newFakeKeywords("AI", core.KeywordActive)
	f := newFixture(t, keywords, WithStartupRebuild(false))

	id := core.IDFromContent("https://example.org/kept")
	stored := []core.IndexedChunk{{ID: core.ChunkID(id, 0), Text: "t", Vector: []float32{1}, Meta: core.ChunkMetadata{ArticleID: id}}}
	require.NoError(t, f.store.SaveChunks(ctx, stored))

	require.NoError(t, f.manager.Start(ctx))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.manager.Size())
	assert.Equal(t, int32(0), keywords.calls.Load())
}

func TestManager_RebuildAsyncCoalesces(t *testing.T) {
	keywords := newFakeKeywords("AI", core.KeywordActive)
	keywords.gate = make(chan struct{})
	f := newFixture(t, keywords)

	f.manager.RebuildAsync()
	require.Eventually(t, func() bool { return keywords.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	for range 5 {
		f.manager.RebuildAsync()
	}
	close(keywords.gate)

	require.Eventually(t, func() bool { return keywords.calls.Load() == 2 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), keywords.calls.Load())
}

func TestManager_RebuildAsyncBackToBack(t *testing.T) {
	keywords := newFakeKeywords("AI", core.KeywordActive)
	f := newFixture(t, keywords)

	const triggers = 100
	for i := range triggers {
		f.manager.RebuildAsync()
		want := int32(i + 1)
		require.Eventually(t, func() bool { return keywords.calls.Load() >= want }, 5*time.Second, time.Millisecond)
	}
	assert.Equal(t, int32(triggers), keywords.calls.Load())
}

func TestManager_CloseFlushesDirtyIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newFakeKeywords("AI", core.KeywordActive))
	article := testArticle("https://example.org/a", "AI", 55, time.Hour)

	_, err := f.manager.AddOrUpdate(ctx, article)
	require.NoError(t, err)
	require.NoError(t, f.manager.Close())

	assert.True(t, f.storedArticleIDs(t)[article.ID])

	_, err = f.manager.AddOrUpdate(ctx, article)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_AddDuringRebuildSurvivesSwap(t *testing.T) {
	ctx := context.Background()
	keywords := newFakeKeywords("AI", core.KeywordActive)
	f := newFixture(t, keywords)
	existing := testArticle("https://example.org/existing", "AI", 55, time.Hour)
	f.articles.add(existing)

	late := testArticle("https://example.org/late", "AI", 55, time.Hour)
	var fired atomic.Bool
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// the rebuild embeds first; index the late article while it runs
		if fired.CompareAndSwap(false, true) {
			go func() {
				_, err := f.manager.AddOrUpdate(context.Background(), late)
				assert.NoError(t, err)
			}()
			require.Eventually(t, func() bool {
				f.manager.writeMu.Lock()
				defer f.manager.writeMu.Unlock()
				return len(f.manager.pending) == 1
			}, 5*time.Second, 5*time.Millisecond)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}

	require.NoError(t, f.manager.Rebuild(ctx))

	ids := indexedArticleIDs(f.manager)
	assert.True(t, ids[existing.ID])
	assert.True(t, ids[late.ID])
	assert.True(t, f.manager.Dirty(), "late article is not in the saved snapshot yet")
}
