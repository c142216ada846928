package index

import "github.com/poiesic/newswire/core"

// snapshot is an immutable view of the index. Writers build a new snapshot
// and swap it in; readers never see a partially built one.
type snapshot struct {
	chunks []core.IndexedChunk
	byID   map[string]int
}

func newSnapshot(chunks []core.IndexedChunk) *snapshot {
	s := &snapshot{
		chunks: chunks,
		byID:   make(map[string]int, len(chunks)),
	}
	for i := range chunks {
		s.byID[chunks[i].ID] = i
	}
	return s
}

// reusableVector returns the stored vector of a chunk whose ID and text
// are unchanged.
func (s *snapshot) reusableVector(chunk *core.IndexedChunk) ([]float32, bool) {
	i, ok := s.byID[chunk.ID]
	if !ok {
		return nil, false
	}
	old := &s.chunks[i]
	if old.Text != chunk.Text || len(old.Vector) == 0 {
		return nil, false
	}
	return old.Vector, true
}

// articleChunks returns the chunks stored for an article.
func (s *snapshot) articleChunks(id core.ID) []core.IndexedChunk {
	var out []core.IndexedChunk
	for _, c := range s.chunks {
		if c.Meta.ArticleID == id {
			out = append(out, c)
		}
	}
	return out
}

// replaceArticle returns a new snapshot where the article's chunks are
// replaced by chunks.
func (s *snapshot) replaceArticle(id core.ID, chunks []core.IndexedChunk) *snapshot {
	out := make([]core.IndexedChunk, 0, len(s.chunks)+len(chunks))
	for _, c := range s.chunks {
		if c.Meta.ArticleID != id {
			out = append(out, c)
		}
	}
	out = append(out, chunks...)
	return newSnapshot(out)
}

func (s *snapshot) articleCount() int {
	seen := make(map[core.ID]struct{})
	for _, c := range s.chunks {
		seen[c.Meta.ArticleID] = struct{}{}
	}
	return len(seen)
}
