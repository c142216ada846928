package core

// EventType identifies a phase of an ingestion run.
type EventType string

const (
	EventStarted         EventType = "STARTED"
	EventKeywordBegin    EventType = "KEYWORD_BEGIN"
	EventCrawlDone       EventType = "CRAWL_DONE"
	EventFilterDone      EventType = "FILTER_DONE"
	EventAIEvalBegin     EventType = "AI_EVAL_BEGIN"
	EventSaveDone        EventType = "SAVE_DONE"
	EventKeywordComplete EventType = "KEYWORD_COMPLETE"
	EventCompleted       EventType = "COMPLETED"
	EventError           EventType = "ERROR"
)

// PercentageUnknown marks an event emitted to a subscriber that joined a
// run already in flight.
const PercentageUnknown = -1

// ProgressEvent is pushed to every registered sink, one JSON object per event.
type ProgressEvent struct {
	Type        EventType `json:"type"`
	Keyword     *string   `json:"keyword"`
	Message     string    `json:"message"`
	CurrentStep int       `json:"currentStep"`
	TotalSteps  int       `json:"totalSteps"`
	Percentage  int       `json:"percentage"`
	Count       *int      `json:"count"`
}

// Terminal reports whether the event ends a run. A keyword-scoped ERROR
// is a per-keyword failure and does not.
func (e ProgressEvent) Terminal() bool {
	switch e.Type {
	case EventCompleted:
		return true
	case EventError:
		return e.Keyword == nil
	}
	return false
}
