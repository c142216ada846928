package index

import (
	"time"

	"github.com/poiesic/newswire/core"
)

// Defaults for the eligibility policy.
const (
	DefaultMaxAge   = 7 * 24 * time.Hour
	DefaultMinScore = 40
)

// Policy decides which articles belong in the index. The same predicate is
// applied when a single article is added and when the index is rebuilt.
type Policy struct {
	// MaxAge is how far back collectedAt may be.
	MaxAge time.Duration
	// MinScore is the lowest final score admitted.
	MinScore int
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultPolicy admits active articles of ACTIVE keywords collected within
// the last 7 days with a final score of at least 40.
func DefaultPolicy() Policy {
	return Policy{MaxAge: DefaultMaxAge, MinScore: DefaultMinScore}
}

// Since returns the oldest admissible collection time.
func (p Policy) Since() time.Time {
	return p.now().Add(-p.MaxAge)
}

// Eligible reports whether article belongs in the index given the status
// of its keyword.
func (p Policy) Eligible(article *core.Article, status core.KeywordStatus) bool {
	if article == nil || !article.IsActive {
		return false
	}
	if status != core.KeywordActive {
		return false
	}
	if article.Scores.Final < p.MinScore {
		return false
	}
	return !article.CollectedAt.Before(p.Since())
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
