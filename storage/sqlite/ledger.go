package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SQLite's default limit on bound parameters is 999 on older builds.
const ledgerChunk = 500

// KnownSince returns URLs first seen at or after since.
func (s *Store) KnownSince(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	q := builder.Select("url").From("url_ledger")
	if !since.IsZero() {
		q = q.Where(sq.GtOrEq{"first_seen_at": toMicros(since)})
	}
	return s.queryURLs(ctx, q)
}

// Existing returns the subset of urls already in the ledger.
func (s *Store) Existing(ctx context.Context, urls []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for start := 0; start < len(urls); start += ledgerChunk {
		end := min(start+ledgerChunk, len(urls))
		part, err := s.queryURLs(ctx, builder.Select("url").From("url_ledger").Where(sq.Eq{"url": urls[start:end]}))
		if err != nil {
			return nil, err
		}
		for u := range part {
			found[u] = struct{}{}
		}
	}
	return found, nil
}

// Append records urls with the current time. Known URLs are left as they are.
func (s *Store) Append(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	seenAt := toMicros(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(urls); start += ledgerChunk {
			end := min(start+ledgerChunk, len(urls))
			ins := builder.Insert("url_ledger").Options("OR IGNORE").Columns("url", "first_seen_at")
			for _, u := range urls[start:end] {
				ins = ins.Values(u, seenAt)
			}
			query, args, err := ins.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("append ledger: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) queryURLs(ctx context.Context, q sq.SelectBuilder) (map[string]struct{}, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}
