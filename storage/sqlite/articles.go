package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

var articleColumns = []string{
	"id", "title", "url", "keyword", "body",
	"llm_score", "structural_score", "metadata_score", "final_score",
	"category", "ai_reason", "summary", "collected_at", "is_active",
}

// SaveArticles inserts articles in one transaction. Articles whose ID or
// URL already exists are skipped; only the rows written are returned.
func (s *Store) SaveArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	saved := make([]*core.Article, 0, len(articles))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range articles {
			query, args, err := builder.Insert("articles").
				Options("OR IGNORE").
				Columns(articleColumns...).
				Values(
					a.ID.String(), a.Title, a.URL, a.Keyword, a.Body,
					a.Scores.LLM, a.Scores.Structural, a.Scores.Metadata, a.Scores.Final,
					a.Category, a.AIReason, a.Summary, toMicros(a.CollectedAt), a.IsActive,
				).
				ToSql()
			if err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("insert article %s: %w", a.URL, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				s.logger.Debug("article already stored", "url", a.URL)
				continue
			}
			saved = append(saved, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// GetArticles returns the stored articles among ids.
func (s *Store) GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	return s.queryArticles(ctx, builder.Select(articleColumns...).From("articles").Where(sq.Eq{"id": keys}))
}

// EligibleArticles returns active articles for keywords collected since
// the given time with at least minScore.
func (s *Store) EligibleArticles(ctx context.Context, keywords []string, since time.Time, minScore int) ([]*core.Article, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	q := builder.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"is_active": true, "keyword": keywords}).
		Where(sq.GtOrEq{"collected_at": toMicros(since), "final_score": minScore}).
		OrderBy("collected_at DESC")
	return s.queryArticles(ctx, q)
}

// CountArticles counts active articles collected since the given time.
func (s *Store) CountArticles(ctx context.Context, since time.Time) (int, error) {
	q := builder.Select("COUNT(*)").From("articles").Where(sq.Eq{"is_active": true})
	if !since.IsZero() {
		q = q.Where(sq.GtOrEq{"collected_at": toMicros(since)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// PurgeOlderThan hard-deletes articles collected before cutoff. The URL
// ledger is left untouched.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := builder.Delete("articles").Where(sq.Lt{"collected_at": toMicros(cutoff)}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge articles: %w", err)
	}
	return res.RowsAffected()
}

// DeactivateByKeyword soft-deletes every active article of keyword.
// Deleting a keyword also re-marks its archived articles.
func (s *Store) DeactivateByKeyword(ctx context.Context, keyword, reason string) (int64, error) {
	var scope sq.Sqlizer = sq.Eq{"is_active": true}
	if reason == storage.ReasonKeywordDeleted {
		scope = sq.Or{
			sq.Eq{"is_active": true},
			sq.Eq{"inactive_reason": storage.ReasonKeywordArchived},
		}
	}
	query, args, err := builder.Update("articles").
		Set("is_active", false).
		Set("inactive_reason", reason).
		Where(sq.Eq{"keyword": keyword}).
		Where(scope).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate articles: %w", err)
	}
	return res.RowsAffected()
}

// ReactivateByKeyword restores the articles archived with the keyword.
func (s *Store) ReactivateByKeyword(ctx context.Context, keyword string) (int64, error) {
	query, args, err := builder.Update("articles").
		Set("is_active", true).
		Set("inactive_reason", nil).
		Where(sq.Eq{
			"keyword":         keyword,
			"is_active":       false,
			"inactive_reason": storage.ReasonKeywordArchived,
		}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reactivate articles: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryArticles(ctx context.Context, q sq.SelectBuilder) ([]*core.Article, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []*core.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(row rowScanner) (*core.Article, error) {
	var (
		a           core.Article
		id          string
		collectedAt int64
	)
	err := row.Scan(
		&id, &a.Title, &a.URL, &a.Keyword, &a.Body,
		&a.Scores.LLM, &a.Scores.Structural, &a.Scores.Metadata, &a.Scores.Final,
		&a.Category, &a.AIReason, &a.Summary, &collectedAt, &a.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if a.ID, err = core.ParseID(id); err != nil {
		return nil, fmt.Errorf("article %q: %w", id, err)
	}
	a.CollectedAt = fromMicros(collectedAt)
	return &a, nil
}
