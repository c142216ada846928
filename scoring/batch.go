package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
	"golang.org/x/time/rate"
)

// Per-article body cap inside a batch prompt.
const batchBodyLimit = 600

const batchUserPrompt = `Rate each of the following %d articles independently.

%s
Respond with a JSON array containing one object per article. Copy the article's index into the "index" field:
[{"index": 0, "impact": 0, "innovation": 0, "timeliness": 0, "category": "", "reason": "", "summary": ""}]`

func buildBatchPrompt(articles []*core.Article) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "[index %d]\nTitle: %s\nURL: %s\nContent:\n%s\n\n", i, a.Title, a.URL, truncateRunes(a.Body, batchBodyLimit))
	}
	return fmt.Sprintf(batchUserPrompt, len(articles), b.String())
}

// evaluateBatch asks for all articles in one completion. The returned slice
// is aligned with articles; entries the reply did not cover are nil.
// Replies are matched by their index field only, never by position.
func (s *Scorer) evaluateBatch(ctx context.Context, articles []*core.Article) []*verdict {
	out := make([]*verdict, len(articles))

	text, err := s.completer.Complete(ctx, evaluationSystemPrompt, buildBatchPrompt(articles))
	if err != nil {
		s.logger.Warn("batch evaluation failed", "count", len(articles), "err", err)
		return out
	}

	items, err := ai.DecodeArray(text)
	if err != nil {
		s.logger.Warn("batch reply is not an array", "count", len(articles), "err", err)
		return out
	}

	for _, raw := range items {
		var v verdict
		if err := json.Unmarshal(raw, &v); err != nil {
			s.logger.Debug("skipping unparseable batch entry", "err", err)
			continue
		}
		if v.Index == nil {
			continue
		}
		idx := *v.Index
		if idx < 0 || idx >= len(articles) {
			s.logger.Debug("ignoring out-of-range batch index", "index", idx, "count", len(articles))
			continue
		}
		if out[idx] != nil {
			continue
		}
		out[idx] = &v
	}
	return out
}

// fillMissing evaluates every article the batch pass left without a verdict,
// one call each, pausing between calls.
func (s *Scorer) fillMissing(ctx context.Context, articles []*core.Article, verdicts []*verdict, settled []bool) {
	limit := rate.Inf
	if s.fallbackDelay > 0 {
		limit = rate.Every(s.fallbackDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, article := range articles {
		if verdicts[i] != nil || settled[i] {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			s.logger.Warn("fallback evaluation interrupted", "err", err)
			return
		}
		s.fallbacks.Add(1)
		v, err := s.evaluateOne(ctx, article)
		if err != nil {
			s.logger.Warn("llm evaluation failed, using default sub-scores", "url", article.URL, "err", err)
			continue
		}
		verdicts[i] = v
	}
}

// partition splits n items into consecutive [start,end) spans of at most
// size items, spreading them evenly so no span is needlessly left with one.
func partition(n, size int) [][2]int {
	if n <= 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	count := (n + size - 1) / size
	base, extra := n/count, n%count

	spans := make([][2]int, 0, count)
	start := 0
	for i := range count {
		length := base
		if i < extra {
			length++
		}
		spans = append(spans, [2]int{start, start + length})
		start += length
	}
	return spans
}
