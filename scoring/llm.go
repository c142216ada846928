package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/newswire/core"
)

// Sub-score ranges of the LLM signal.
const (
	maxImpact     = 20
	maxInnovation = 15
	maxTimeliness = 15
)

// Cap on body text sent to the completion service per article.
const promptBodyLimit = 1500

const evaluationSystemPrompt = `You are a news analyst rating how important an article is for an operator who tracks technology topics.

Rate the article on three axes:
- impact (0-20): how much the reported event changes things for the industry or the public
- innovation (0-15): how new the technology, product or idea is
- timeliness (0-15): how urgent or current the news is

Also give a short category (one or two words), a one-sentence reason for the rating and a two-sentence summary.

Respond with JSON only.`

const singleUserPrompt = `Rate this article.

Title: %s
URL: %s
Content:
%s

Respond with a JSON object:
{"impact": 0, "innovation": 0, "timeliness": 0, "category": "", "reason": "", "summary": ""}`

// verdict is the model's answer for one article. Sub-scores are pointers so
// a missing field can be told apart from an explicit zero.
type verdict struct {
	Index      *int     `json:"index,omitempty"`
	Impact     *float64 `json:"impact"`
	Innovation *float64 `json:"innovation"`
	Timeliness *float64 `json:"timeliness"`
	Category   string   `json:"category"`
	Reason     string   `json:"reason"`
	Summary    string   `json:"summary"`
}

func (s *Scorer) evaluateOne(ctx context.Context, article *core.Article) (*verdict, error) {
	prompt := fmt.Sprintf(singleUserPrompt, article.Title, article.URL, truncateRunes(article.Body, promptBodyLimit))

	var v verdict
	if err := s.completer.CompleteJSON(ctx, evaluationSystemPrompt, prompt, &v); err != nil {
		return nil, fmt.Errorf("evaluate article: %w", err)
	}
	return &v, nil
}

// llmSignal turns a verdict into the 0-50 LLM score. Each sub-score is
// clamped into its own range before summing; missing sub-scores take the
// configured default. A nil verdict is fully defaulted.
func (s *Scorer) llmSignal(v *verdict) (int, bool) {
	if v == nil {
		return s.defaults.Impact + s.defaults.Innovation + s.defaults.Timeliness, true
	}
	impact := subScore(v.Impact, s.defaults.Impact, maxImpact)
	innovation := subScore(v.Innovation, s.defaults.Innovation, maxInnovation)
	timeliness := subScore(v.Timeliness, s.defaults.Timeliness, maxTimeliness)
	return impact + innovation + timeliness, false
}

func subScore(v *float64, fallback, hi int) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return core.Clamp(fallback, 0, hi)
	}
	return core.Clamp(int(math.Round(*v)), 0, hi)
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
