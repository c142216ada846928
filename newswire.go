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


// Package newswire assembles the ingestion pipeline, the retrieval index and
// keyword management into a single Service.
package newswire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/ai/openai"
	"github.com/poiesic/newswire/config"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/fetch"
	"github.com/poiesic/newswire/index"
	"github.com/poiesic/newswire/ingestion"
	"github.com/poiesic/newswire/keywords"
	"github.com/poiesic/newswire/schedule"
	"github.com/poiesic/newswire/scoring"
	"github.com/poiesic/newswire/search"
	"github.com/poiesic/newswire/storage/badger"
	"github.com/poiesic/newswire/storage/sqlite"
)

// Task names registered with the scheduler.
const (
	TaskIngest   = "ingest"
	TaskRebuild  = "rebuild-index"
	TaskPurge    = "purge-articles"
	scheduleTick = 30 * time.Second
)

// ErrConfigRequired is returned by Open when no configuration is given.
var ErrConfigRequired = errors.New("config is required")

// Service owns every component and its storage.
type Service struct {
	cfg          *config.Config
	store        *sqlite.Store
	chunks       *badger.ChunkStore
	provider     ai.AIProvider
	scorer       *scoring.Scorer
	index        *index.Manager
	keywords     *keywords.Service
	orchestrator *ingestion.Orchestrator
	searcher     *search.Searcher
	scheduler    *schedule.Scheduler
	logger       *slog.Logger
}

// Status is a combined view of ingestion, the index and scheduled tasks.
type Status struct {
	core.RunStatus
	IndexedChunks int
	Tasks         []schedule.TaskStatus
}

// Option configures a Service.
type Option func(*options)

type options struct {
	provider       ai.AIProvider
	fetcher        fetch.Fetcher
	memoryIndex    bool
	startupRebuild bool
	logger         *slog.Logger
}

// WithProvider replaces the OpenAI-compatible provider built from config.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithFetcher replaces the feed fetcher built from config.
func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// WithMemoryIndex keeps the index snapshot in memory instead of on disk.
func WithMemoryIndex() Option {
	return func(o *options) {
		o.memoryIndex = true
	}
}

// WithStartupRebuild controls whether Start rebuilds the index after
// loading its snapshot. Default is true.
func WithStartupRebuild(enabled bool) Option {
	return func(o *options) {
		o.startupRebuild = enabled
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open opens storage under cfg.DataDir and wires every component. Call
// Start or Serve before searching.
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{startupRebuild: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	s := &Service{cfg: cfg, logger: o.logger.With("component", "newswire")}
	if err := s.open(o); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing partially opened service", "err", closeErr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Service) open(o *options) error {
	cfg := s.cfg
	logger := o.logger

	var err error
	s.store, err = sqlite.NewStore(cfg.DataDir, sqlite.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening article store: %w", err)
	}

	if o.memoryIndex {
		s.chunks, err = badger.NewMemoryChunkStore()
	} else {
		s.chunks, err = badger.OpenChunkStore(cfg.IndexDir())
	}
	if err != nil {
		return fmt.Errorf("opening index store: %w", err)
	}

	s.provider = o.provider
	if s.provider == nil {
		s.provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			return fmt.Errorf("creating AI provider: %w", err)
		}
	}

	s.scorer, err = scoring.NewScorer(s.provider.Completer(), s.provider.Embedder(),
		scoring.WithBatchSize(cfg.Scoring.BatchSize),
		scoring.WithFallbackDelay(cfg.Scoring.FallbackDelay.Std()),
		scoring.WithDomainTiers(cfg.Scoring.DomainTiers),
		scoring.WithDefaults(cfg.Scoring.Defaults),
		scoring.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	s.index, err = index.NewManager(s.store, s.store, s.provider.Embedder(), s.chunks,
		index.WithPolicy(cfg.Policy()),
		index.WithChunker(cfg.Chunker()),
		index.WithFlushInterval(cfg.Index.FlushInterval.Std()),
		index.WithEmbedBatchSize(cfg.Index.EmbedBatchSize),
		index.WithRetry(cfg.Index.MaxRetries, cfg.Index.RetryDelay.Std()),
		index.WithStartupRebuild(o.startupRebuild),
		index.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	s.keywords, err = keywords.NewService(s.store, s.store, s.index, keywords.WithLogger(logger))
	if err != nil {
		return err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher, err = fetch.NewFeedFetcher(cfg.Fetch.FeedTemplate,
			fetch.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout.Std()}),
			fetch.WithUserAgent(cfg.Fetch.UserAgent),
			fetch.WithMaxItems(cfg.Fetch.MaxItems),
			fetch.WithPageFetch(cfg.Fetch.PageFetch),
			fetch.WithRequestRate(cfg.Fetch.RequestRate),
			fetch.WithLogger(logger),
		)
		if err != nil {
			return err
		}
	}

	s.orchestrator, err = ingestion.NewOrchestrator(s.store, fetcher, s.scorer, s.store, s.store, s.index,
		ingestion.WithPrefilterWindow(cfg.Ingestion.PrefilterWindow.Std()),
		ingestion.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	s.searcher, err = search.NewSearcher(s.index, s.store, search.WithLogger(logger))
	if err != nil {
		return err
	}

	s.scheduler, err = schedule.NewScheduler(s.tasks(), schedule.WithTick(scheduleTick), schedule.WithLogger(logger))
	return err
}

func (s *Service) tasks() []schedule.Task {
	cfg := s.cfg
	var tasks []schedule.Task

	if cfg.Ingestion.Interval > 0 {
		tasks = append(tasks, schedule.Task{
			Name:       TaskIngest,
			Interval:   cfg.Ingestion.Interval.Std(),
			RunOnStart: cfg.Ingestion.RunOnStart,
			Run: func(ctx context.Context) error {
				ticket, err := s.orchestrator.StartRun(ctx)
				if err != nil {
					return err
				}
				if !ticket.Accepted {
					s.logger.Debug("scheduled run skipped, another run is executing")
				}
				return nil
			},
		})
	}

	if cfg.Index.RebuildInterval > 0 {
		tasks = append(tasks, schedule.Task{
			Name:     TaskRebuild,
			Interval: cfg.Index.RebuildInterval.Std(),
			Run:      s.index.Rebuild,
		})
	}

	if cfg.Retention.MaxAge > 0 {
		tasks = append(tasks, schedule.Task{
			Name:     TaskPurge,
			Interval: cfg.Retention.PurgeInterval.Std(),
			Run: func(ctx context.Context) error {
				_, err := s.Purge(ctx)
				return err
			},
		})
	}
	return tasks
}

// Start loads the index snapshot and starts background flushing.
func (s *Service) Start(ctx context.Context) error {
	return s.index.Start(ctx)
}

// Serve starts the service and runs scheduled tasks until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	err := s.scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Purge deletes articles older than the retention window and returns how
// many were removed. The URL ledger is untouched.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	if s.cfg.Retention.MaxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.cfg.Retention.MaxAge.Std())
	n, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged old articles", "count", n, "cutoff", cutoff)
		s.index.RebuildAsync()
	}
	return n, nil
}

// Status reports run statistics, index size and scheduled tasks.
func (s *Service) Status(ctx context.Context) (Status, error) {
	run, err := s.orchestrator.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		RunStatus:     run,
		IndexedChunks: s.index.Size(),
		Tasks:         s.scheduler.Status(),
	}, nil
}

// Search runs a retrieval query against the index.
func (s *Service) Search(ctx context.Context, query string, opts search.Options) ([]*search.Result, error) {
	return s.searcher.Search(ctx, query, opts)
}

// Keywords returns the keyword lifecycle service.
func (s *Service) Keywords() *keywords.Service { return s.keywords }

// Orchestrator returns the run orchestrator.
func (s *Service) Orchestrator() *ingestion.Orchestrator { return s.orchestrator }

// Index returns the retrieval index manager.
func (s *Service) Index() *index.Manager { return s.index }

// Config returns the configuration the service was opened with.
func (s *Service) Config() *config.Config { return s.cfg }

// Close stops scheduled work and closes components in reverse order of
// construction.
func (s *Service) Close() error {
	var errs []error
	if s.scheduler != nil {
		errs = append(errs, s.scheduler.Stop())
	}
	if s.orchestrator != nil {
		errs = append(errs, s.orchestrator.Close())
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Error("error closing index", "err", err)
			errs = append(errs, err)
		}
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.chunks != nil {
		if err := s.chunks.Close(); err != nil {
			s.logger.Error("error closing index store", "err", err)
			errs = append(errs, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("error closing article store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
