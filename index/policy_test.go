package index

import (
	"testing"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Eligible(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()
	policy.Now = func() time.Time { return now }

	article := func(final int, age time.Duration, active bool) *core.Article {
		return &core.Article{
			Scores:      core.ScoreBreakdown{Final: final},
			CollectedAt: now.Add(-age),
			IsActive:    active,
		}
	}
	day := 24 * time.Hour

	tests := []struct {
		name    string
		article *core.Article
		status  core.KeywordStatus
		want    bool
	}{
		{"score 40 six days old active keyword", article(40, 6*day, true), core.KeywordActive, true},
		{"paused keyword", article(40, 6*day, true), core.KeywordPaused, false},
		{"archived keyword", article(40, 6*day, true), core.KeywordArchived, false},
		{"eight days old", article(40, 8*day, true), core.KeywordActive, false},
		{"score 39", article(39, 6*day, true), core.KeywordActive, false},
		{"exactly seven days", article(90, 7*day, true), core.KeywordActive, true},
		{"inactive article", article(90, day, false), core.KeywordActive, false},
		{"nil article", nil, core.KeywordActive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Eligible(tt.article, tt.status))
		})
	}
}
