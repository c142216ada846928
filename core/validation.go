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

package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateArticle validates an Article according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - URL must be an absolute http(s) URL
//   - Keyword must not be blank
//   - CollectedAt must not be in the future
//
// NOT validated:
//   - Body (articles without a body are indexed from title and summary)
//   - Scores (clamped at construction by NewScoreBreakdown)
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}

	if strings.TrimSpace(article.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrEmptyTitle)
	}

	if _, err := NormalizeURL(article.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, err)
	}

	if strings.TrimSpace(article.Keyword) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrEmptyKeywordName)
	}

	if !IsValidTimestamp(article.CollectedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrInvalidTimestamp)
	}

	return nil
}

// NormalizeKeywordName trims a keyword name and rejects blank names.
// Case is preserved; uniqueness is enforced case-insensitively by storage.
func NormalizeKeywordName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidKeyword, ErrEmptyKeywordName)
	}
	return name, nil
}

// NormalizeURL returns the canonical form used for deduplication:
// lowercase scheme and host, fragment removed.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// ValidateTransition checks a keyword status change. Every state may move to
// every other state; re-entering the current state is a no-op and allowed.
func ValidateTransition(from, to KeywordStatus) error {
	if !from.Valid() {
		return fmt.Errorf("%w: from %q", ErrInvalidTransition, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: to %q", ErrInvalidTransition, to)
	}
	return nil
}

// CrossesActiveBoundary reports whether a transition enters or leaves ACTIVE.
func CrossesActiveBoundary(from, to KeywordStatus) bool {
	return (from == KeywordActive) != (to == KeywordActive)
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
