package index

import "github.com/poiesic/newswire/core"

// SearchMonitor provides hooks to observe a search.
// Implement this interface to trace queries and their results.
type SearchMonitor interface {
	Start(query string, topK int, threshold float32)
	AfterQueryEmbedding(vector []float32)
	Hit(result core.RankedChunk)
	Finish(results []core.RankedChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int, _ float32) {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)  {}
func (n *noopMonitor) Hit(_ core.RankedChunk)           {}
func (n *noopMonitor) Finish(_ []core.RankedChunk)      {}
