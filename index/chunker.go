package index

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/newswire/core"
)

// Chunking defaults, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultFallbackCap  = 1000

	// Bodies shorter than this are treated as missing.
	minBodyRunes = 80
)

// Chunker splits articles into overlapping character windows. Every chunk
// starts with the article title so it can be retrieved on its own.
type Chunker struct {
	Size        int
	Overlap     int
	FallbackCap int
}

// DefaultChunker returns a chunker with 1000-character windows and
// 200 characters of overlap.
func DefaultChunker() Chunker {
	return Chunker{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap, FallbackCap: DefaultFallbackCap}
}

func (c Chunker) normalized() Chunker {
	if c.Size <= 0 {
		c.Size = DefaultChunkSize
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.Size {
		c.Overlap = c.Size / 4
	}
	if c.FallbackCap <= 0 {
		c.FallbackCap = DefaultFallbackCap
	}
	return c
}

// Chunk returns the chunks of article with empty vectors. An article
// without a usable body yields one chunk built from its title, summary
// and evaluation reason.
func (c Chunker) Chunk(article *core.Article) []core.IndexedChunk {
	c = c.normalized()
	title := strings.TrimSpace(article.Title)
	body := []rune(strings.TrimSpace(article.Body))

	if len(body) < minBodyRunes {
		return []core.IndexedChunk{c.makeChunk(article, 0, c.fallbackText(article))}
	}

	step := c.Size - c.Overlap
	chunks := make([]core.IndexedChunk, 0, len(body)/step+1)
	for start := 0; start < len(body); start += step {
		end := min(start+c.Size, len(body))
		text := string(body[start:end])
		if title != "" {
			text = title + "\n\n" + text
		}
		chunks = append(chunks, c.makeChunk(article, len(chunks), text))
		if end == len(body) {
			break
		}
	}
	return chunks
}

func (c Chunker) fallbackText(article *core.Article) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{article.Title, article.Summary, article.AIReason} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	text := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(text) > c.FallbackCap {
		text = string([]rune(text)[:c.FallbackCap])
	}
	return text
}

func (c Chunker) makeChunk(article *core.Article, ordinal int, text string) core.IndexedChunk {
	return core.IndexedChunk{
		ID:   core.ChunkID(article.ID, ordinal),
		Text: text,
		Meta: core.ChunkMetadata{
			ArticleID:  article.ID,
			Title:      article.Title,
			URL:        article.URL,
			Keyword:    article.Keyword,
			Score:      article.Scores.Final,
			Category:   article.Category,
			ChunkIndex: ordinal,
		},
	}
}
