// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package newswire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/newswire/ai/mock"
	"github.com/poiesic/newswire/config"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/ingestion"
	"github.com/poiesic/newswire/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	items map[string][]core.RawItem
}

func (f *stubFetcher) Fetch(ctx context.Context, keyword string, known map[string]struct{}) ([]core.RawItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RawItem
	for _, it := range f.items[keyword] {
		if _, ok := known[it.URL]; !ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func batchReply(ctx context.Context, system, prompt string) (string, error) {
	if !strings.Contains(prompt, "[index 0]") {
		return `{"impact": 15, "innovation": 10, "timeliness": 10, "category": "AI", "reason": "single"}`, nil
	}
	var parts []string
	for i := 0; strings.Contains(prompt, fmt.Sprintf("[index %d]", i)); i++ {
		parts = append(parts, fmt.Sprintf(`{"index": %d, "impact": 15, "innovation": 10, "timeliness": 10, "category": "AI", "reason": "batch"}`, i))
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Index.MinScore = 0
	cfg.Scoring.FallbackDelay = 0
	return cfg
}

func openTestService(t *testing.T, cfg *config.Config, fetcher *stubFetcher) *Service {
	t.Helper()
	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockCompleter().CompleteFunc = batchReply

	svc, err := Open(cfg,
		WithProvider(provider),
		WithFetcher(fetcher),
		WithMemoryIndex(),
		WithStartupRebuild(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.Start(context.Background()))
	return svc
}

func TestOpen_Errors(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := Open(nil)
		assert.ErrorIs(t, err, ErrConfigRequired)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Index.ChunkSize = 0
		_, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("data dir is a file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DataDir = filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(cfg.DataDir, []byte("x"), 0o600))

		svc, err := Open(cfg, WithProvider(mock.NewMockProvider()), WithMemoryIndex())
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestService_RunIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	body := "Researchers released an open AI model for protein design. " + strings.Repeat("The lab published weights and benchmarks. ", 10)
	fetcher := &stubFetcher{items: map[string][]core.RawItem{
		"AI": {
			{Title: "Open AI model for proteins", URL: "https://news.example.com/a", Body: body},
			{Title: "AI chips get cheaper", URL: "https://news.example.com/b", Body: body + " Chip prices fell."},
		},
	}}
	svc := openTestService(t, testConfig(t), fetcher)

	_, err := svc.Keywords().Create(ctx, "AI", core.KeywordActive)
	require.NoError(t, err)

	var mu sync.Mutex
	var events []core.ProgressEvent
	svc.Orchestrator().Subscribe(ingestion.SinkFunc(func(e core.ProgressEvent) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	}))

	ticket, err := svc.Orchestrator().StartRun(ctx)
	require.NoError(t, err)
	require.True(t, ticket.Accepted)
	svc.Orchestrator().Wait()

	mu.Lock()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	mu.Unlock()
	assert.Equal(t, core.EventCompleted, last.Type)
	require.NotNil(t, last.Count)
	assert.Equal(t, 2, *last.Count)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalArticles)
	assert.Equal(t, 1, status.ActiveKeywordCount)
	assert.Equal(t, ticket.RunID, status.LastRunID)
	assert.Positive(t, status.IndexedChunks)

	results, err := svc.Search(ctx, "protein design model", search.Options{Threshold: 0.01})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "AI", r.Article.Keyword)
	}

	// a second run finds nothing new
	ticket, err = svc.Orchestrator().StartRun(ctx)
	require.NoError(t, err)
	require.True(t, ticket.Accepted)
	svc.Orchestrator().Wait()

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalArticles)
}

func TestService_ScheduledTasks(t *testing.T) {
	cfg := testConfig(t)
	svc := openTestService(t, cfg, &stubFetcher{})

	status, err := svc.Status(context.Background())
	require.NoError(t, err)

	var names []string
	for _, task := range status.Tasks {
		names = append(names, task.Name)
	}
	assert.ElementsMatch(t, []string{TaskIngest, TaskRebuild, TaskPurge}, names)

	cfg = testConfig(t)
	cfg.Ingestion.Interval = 0
	cfg.Index.RebuildInterval = 0
	cfg.Retention.MaxAge = 0
	svc = openTestService(t, cfg, &stubFetcher{})

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.Tasks)

	n, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_ServeStopsWithContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ingestion.Interval = 0
	svc := openTestService(t, cfg, &stubFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
