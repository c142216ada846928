package ingestion

import (
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/newswire/core"
)

// phase is a point inside one keyword's share of the run, as a fraction of
// that share.
type phase float64

const (
	phaseBegin    phase = 0
	phaseCrawl    phase = 0.25
	phaseFilter   phase = 0.35
	phaseAIEval   phase = 0.45
	phaseSave     phase = 0.85
	phaseComplete phase = 1
)

// progressTracker builds the events of one run. Each keyword owns an equal
// slice of [0,100] and phases interpolate within it. Percentages never
// decrease.
type progressTracker struct {
	mu        sync.Mutex
	total     int
	highWater int
	startTime time.Time
}

func newProgressTracker(totalKeywords int) *progressTracker {
	return &progressTracker{total: totalKeywords, startTime: time.Now()}
}

// percent computes the overall percentage at phase p of keyword step
// (0-based). Must be called with lock held.
func (p *progressTracker) percent(step int, ph phase) int {
	if p.total <= 0 {
		return 0
	}
	pct := int((float64(step) + float64(ph)) * 100 / float64(p.total))
	pct = core.Clamp(pct, 0, 100)
	if pct < p.highWater {
		pct = p.highWater
	}
	p.highWater = pct
	return pct
}

func (p *progressTracker) started() core.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return core.ProgressEvent{
		Type:       core.EventStarted,
		Message:    fmt.Sprintf("Ingestion started for %d keywords", p.total),
		TotalSteps: p.total,
		Percentage: p.percent(0, phaseBegin),
	}
}

// keyword builds a keyword-scoped event. count may be nil.
func (p *progressTracker) keyword(t core.EventType, step int, name, message string, count *int) core.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	ph := phaseBegin
	switch t {
	case core.EventCrawlDone:
		ph = phaseCrawl
	case core.EventFilterDone:
		ph = phaseFilter
	case core.EventAIEvalBegin:
		ph = phaseAIEval
	case core.EventSaveDone:
		ph = phaseSave
	case core.EventKeywordComplete, core.EventError:
		ph = phaseComplete
	}
	return core.ProgressEvent{
		Type:        t,
		Keyword:     &name,
		Message:     message,
		CurrentStep: step + 1,
		TotalSteps:  p.total,
		Percentage:  p.percent(step, ph),
		Count:       count,
	}
}

func (p *progressTracker) completed(total int, message string) core.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highWater = 100
	return core.ProgressEvent{
		Type:        core.EventCompleted,
		Message:     message,
		CurrentStep: p.total,
		TotalSteps:  p.total,
		Percentage:  100,
		Count:       &total,
	}
}

func (p *progressTracker) failed(message string) core.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return core.ProgressEvent{
		Type:       core.EventError,
		Message:    message,
		TotalSteps: p.total,
		Percentage: p.highWater,
	}
}

// elapsed returns the time since the tracker was created.
func (p *progressTracker) elapsed() time.Duration {
	return time.Since(p.startTime)
}

// inProgressEvent greets a sink that joins a run already executing.
func inProgressEvent() core.ProgressEvent {
	return core.ProgressEvent{
		Type:       core.EventStarted,
		Message:    "An ingestion run is already in progress",
		Percentage: core.PercentageUnknown,
	}
}

func countOf(n int) *int {
	return &n
}
