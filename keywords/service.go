package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// Rebuilder queues a rebuild of the retrieval index and returns at once.
type Rebuilder interface {
	RebuildAsync()
}

// Service applies keyword transitions and their side effects.
type Service struct {
	repo      storage.KeywordRepository
	articles  storage.ArticleLifecycle
	rebuilder Rebuilder
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a keyword service.
func NewService(repo storage.KeywordRepository, articles storage.ArticleLifecycle, rebuilder Rebuilder, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if articles == nil {
		return nil, ErrLifecycleRequired
	}
	if rebuilder == nil {
		return nil, ErrRebuilderRequired
	}
	s := &Service{
		repo:      repo,
		articles:  articles,
		rebuilder: rebuilder,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "keywords")
	return s, nil
}

// Create registers a keyword. An empty status means ACTIVE. Names are
// unique ignoring case; a clash returns storage.ErrDuplicateKey.
func (s *Service) Create(ctx context.Context, name string, status core.KeywordStatus) (*core.Keyword, error) {
	name, err := core.NormalizeKeywordName(name)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = core.KeywordActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}

	kw, err := s.repo.CreateKeyword(ctx, name, status)
	if err != nil {
		return nil, fmt.Errorf("create keyword %q: %w", name, err)
	}
	s.logger.Info("keyword created", "keyword", kw.Name, "status", kw.Status)
	return kw, nil
}

// Get returns the keyword with id.
func (s *Service) Get(ctx context.Context, id int64) (*core.Keyword, error) {
	return s.repo.GetKeyword(ctx, id)
}

// Find resolves ref as a numeric ID or, failing that, a name.
func (s *Service) Find(ctx context.Context, ref string) (*core.Keyword, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.repo.GetKeyword(ctx, id)
	}
	name, err := core.NormalizeKeywordName(ref)
	if err != nil {
		return nil, err
	}
	return s.repo.FindKeywordByName(ctx, name)
}

// List returns keywords with any of statuses, or all keywords.
func (s *Service) List(ctx context.Context, statuses ...core.KeywordStatus) ([]*core.Keyword, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, st)
		}
	}
	return s.repo.ListKeywords(ctx, statuses...)
}

// SetStatus moves a keyword to status. Setting the current status is a
// no-op. Article visibility changes before the status is recorded, so a
// failed call can simply be retried.
func (s *Service) SetStatus(ctx context.Context, id int64, status core.KeywordStatus) (*core.Keyword, error) {
	kw, err := s.repo.GetKeyword(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateTransition(kw.Status, status); err != nil {
		return nil, err
	}
	if kw.Status == status {
		return kw, nil
	}
	from := kw.Status

	var changed int64
	switch status {
	case core.KeywordArchived:
		changed, err = s.articles.DeactivateByKeyword(ctx, kw.Name, storage.ReasonKeywordArchived)
	case core.KeywordActive:
		changed, err = s.articles.ReactivateByKeyword(ctx, kw.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("update articles of %q: %w", kw.Name, err)
	}

	if err := s.repo.UpdateKeywordStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update keyword %q: %w", kw.Name, err)
	}
	kw.Status = status
	s.logger.Info("keyword status changed", "keyword", kw.Name, "from", from, "to", status, "count", changed)

	if core.CrossesActiveBoundary(from, status) {
		s.rebuilder.RebuildAsync()
	}
	return kw, nil
}

// Delete soft-deletes the keyword's articles and removes the keyword.
// Deleted articles are never reactivated, even if the name is registered
// again.
func (s *Service) Delete(ctx context.Context, id int64) error {
	kw, err := s.repo.GetKeyword(ctx, id)
	if err != nil {
		return err
	}
	changed, err := s.articles.DeactivateByKeyword(ctx, kw.Name, storage.ReasonKeywordDeleted)
	if err != nil {
		return fmt.Errorf("deactivate articles of %q: %w", kw.Name, err)
	}
	if err := s.repo.DeleteKeyword(ctx, id); err != nil {
		return fmt.Errorf("delete keyword %q: %w", kw.Name, err)
	}
	s.logger.Info("keyword deleted", "keyword", kw.Name, "count", changed)

	if kw.Status == core.KeywordActive {
		s.rebuilder.RebuildAsync()
	}
	return nil
}
