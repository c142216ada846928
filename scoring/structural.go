package scoring

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
)

const (
	leadMinRunes     = 30
	leadMaxRunes     = 300
	similarityRunes  = 1000
	maxTitleMatch    = 10
	maxLeadMatch     = 5
	maxSimilarityPts = 15
)

func distinctKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}

// keywordVector embeds the joined keyword list. A nil result disables the
// similarity sub-signal.
func (s *Scorer) keywordVector(ctx context.Context, keywords []string) []float32 {
	if len(keywords) == 0 {
		return nil
	}
	vec, err := s.embedder.EmbedText(ctx, strings.Join(keywords, ", "))
	if err != nil {
		s.logger.Warn("keyword embedding failed, similarity signal disabled", "err", err)
		return nil
	}
	return vec
}

func (s *Scorer) structuralSignal(ctx context.Context, article *core.Article, keywords []string, kwVector []float32) int {
	total := matchTier(countHits(article.Title, keywords), 5, maxTitleMatch)
	total += matchTier(countHits(leadParagraph(article.Body), keywords), 3, maxLeadMatch)
	total += s.similarityPoints(ctx, article, kwVector)
	return min(total, core.MaxStructuralScore)
}

func (s *Scorer) similarityPoints(ctx context.Context, article *core.Article, kwVector []float32) int {
	body := truncateRunes(article.Body, similarityRunes)
	if len(kwVector) == 0 || body == "" {
		return 0
	}
	vec, err := s.embedder.EmbedText(ctx, body)
	if err != nil {
		s.logger.Warn("body embedding failed", "url", article.URL, "err", err)
		return 0
	}
	sim := float64(ai.CosineSimilarity(vec, kwVector))
	sim = math.Max(0, math.Min(1, sim))
	return int(math.Round(sim * maxSimilarityPts))
}

// matchTier maps a distinct-hit count onto 0, one or max.
func matchTier(hits, one, top int) int {
	switch {
	case hits >= 2:
		return top
	case hits == 1:
		return one
	default:
		return 0
	}
}

// countHits counts how many distinct keywords occur in text, ignoring case.
func countHits(text string, keywords []string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			hits++
		}
	}
	return hits
}

// leadParagraph returns the first paragraph of at least 30 characters,
// truncated to 300.
func leadParagraph(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) >= leadMinRunes {
			return truncateRunes(line, leadMaxRunes)
		}
	}
	return ""
}
