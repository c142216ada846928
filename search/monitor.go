package search

import "github.com/poiesic/newswire/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, opts Options)
	AfterChunkSearch(chunks []core.RankedChunk)
	AfterArticleRetrieval(articles []*core.Article)
	VerbatimHit(result *Result)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Options)               {}
func (n *noopMonitor) AfterChunkSearch(_ []core.RankedChunk)   {}
func (n *noopMonitor) AfterArticleRetrieval(_ []*core.Article) {}
func (n *noopMonitor) VerbatimHit(_ *Result)                   {}
func (n *noopMonitor) Finish(_ []*Result)                      {}
