package ingestion

import (
	"log/slog"
	"sync"

	"github.com/poiesic/newswire/core"
)

// listeners is the set of sinks observing runs. Delivery is a synchronous
// loop under the lock, so a sink never sees events out of order.
type listeners struct {
	mu     sync.Mutex
	sinks  map[uint64]Sink
	nextID uint64
	logger *slog.Logger
}

func newListeners(logger *slog.Logger) *listeners {
	return &listeners{sinks: make(map[uint64]Sink), logger: logger}
}

// add registers sink. If running reports true the sink is first told that
// a run is already executing.
func (l *listeners) add(sink Sink, running func() bool) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if running() {
		if err := sink.Send(inProgressEvent()); err != nil {
			_ = sink.Close()
			return func() {}
		}
	}
	id := l.nextID
	l.nextID++
	l.sinks[id] = sink
	return func() { l.remove(id) }
}

func (l *listeners) remove(id uint64) {
	l.mu.Lock()
	sink, ok := l.sinks[id]
	delete(l.sinks, id)
	l.mu.Unlock()
	if ok {
		_ = sink.Close()
	}
}

// broadcast delivers event to every sink, dropping sinks that fail.
func (l *listeners) broadcast(event core.ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deliver(event)
}

// finish delivers the terminal event, closes and forgets every sink, then
// calls release before new subscribers are admitted.
func (l *listeners) finish(event core.ProgressEvent, release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.deliver(event)
	for id, sink := range l.sinks {
		_ = sink.Close()
		delete(l.sinks, id)
	}
	release()
}

// deliver must be called with lock held.
func (l *listeners) deliver(event core.ProgressEvent) {
	for id, sink := range l.sinks {
		if err := sink.Send(event); err != nil {
			l.logger.Debug("dropping progress sink", "err", err)
			_ = sink.Close()
			delete(l.sinks, id)
		}
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sinks)
}
