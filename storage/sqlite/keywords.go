package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

var keywordColumns = []string{"id", "name", "status", "created_at"}

// CreateKeyword inserts a keyword, failing with storage.ErrDuplicateKey if
// the name is taken.
func (s *Store) CreateKeyword(ctx context.Context, name string, status core.KeywordStatus) (*core.Keyword, error) {
	kw := &core.Keyword{
		Name:      name,
		Status:    status,
		CreatedAt: s.now().UTC(),
	}

	query, args, err := builder.Insert("keywords").
		Options("OR IGNORE").
		Columns("name", "status", "created_at").
		Values(kw.Name, string(kw.Status), toMicros(kw.CreatedAt)).
		ToSql()
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert keyword: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, storage.ErrDuplicateKey
	}
	if kw.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("keyword id: %w", err)
	}
	kw.CreatedAt = fromMicros(toMicros(kw.CreatedAt))
	return kw, nil
}

// GetKeyword returns a keyword by ID.
func (s *Store) GetKeyword(ctx context.Context, id int64) (*core.Keyword, error) {
	return s.getKeyword(ctx, sq.Eq{"id": id})
}

// FindKeywordByName returns a keyword by name, ignoring case.
func (s *Store) FindKeywordByName(ctx context.Context, name string) (*core.Keyword, error) {
	return s.getKeyword(ctx, sq.Eq{"name": name})
}

func (s *Store) getKeyword(ctx context.Context, where sq.Eq) (*core.Keyword, error) {
	query, args, err := builder.Select(keywordColumns...).From("keywords").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	kw, err := scanKeyword(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return kw, err
}

// ListKeywords returns keywords in creation order, optionally restricted
// to some statuses.
func (s *Store) ListKeywords(ctx context.Context, statuses ...core.KeywordStatus) ([]*core.Keyword, error) {
	q := builder.Select(keywordColumns...).From("keywords").OrderBy("id")
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		q = q.Where(sq.Eq{"status": names})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var keywords []*core.Keyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// UpdateKeywordStatus changes a keyword's status.
func (s *Store) UpdateKeywordStatus(ctx context.Context, id int64, status core.KeywordStatus) error {
	query, args, err := builder.Update("keywords").
		Set("status", string(status)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args...)
}

// DeleteKeyword removes a keyword record.
func (s *Store) DeleteKeyword(ctx context.Context, id int64) error {
	query, args, err := builder.Delete("keywords").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args...)
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKeyword(row rowScanner) (*core.Keyword, error) {
	var (
		kw        core.Keyword
		status    string
		createdAt int64
	)
	if err := row.Scan(&kw.ID, &kw.Name, &status, &createdAt); err != nil {
		return nil, err
	}
	kw.Status = core.KeywordStatus(status)
	kw.CreatedAt = fromMicros(createdAt)
	return &kw, nil
}
