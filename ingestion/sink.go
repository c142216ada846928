package ingestion

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/poiesic/newswire/core"
)

// Sink receives progress events. Send is called from the run's goroutine
// and must not block for long. A Send error deregisters and closes the sink.
// Close may be called more than once.
type Sink interface {
	Send(event core.ProgressEvent) error
	Close() error
}

// SinkFunc adapts a function to a Sink whose Close does nothing.
type SinkFunc func(event core.ProgressEvent) error

var _ Sink = SinkFunc(nil)

// Send calls f.
func (f SinkFunc) Send(event core.ProgressEvent) error { return f(event) }

// Close does nothing.
func (f SinkFunc) Close() error { return nil }

// WriterSink writes each event as one line of JSON.
type WriterSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closed bool
}

var _ Sink = (*WriterSink)(nil)

// NewWriterSink creates a sink writing JSON lines to w. Closing the sink
// does not close w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Send writes event followed by a newline.
func (s *WriterSink) Send(event core.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	return s.enc.Encode(event)
}

// Close stops further writes.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// ChannelSink buffers events on a channel for a consumer in another
// goroutine. The channel is closed when the sink is closed, either by the
// run ending or by its lifetime running out.
type ChannelSink struct {
	mu     sync.Mutex
	ch     chan core.ProgressEvent
	closed bool
	timer  *time.Timer
}

var _ Sink = (*ChannelSink)(nil)

// NewChannelSink creates a sink with room for buffer undelivered events
// that closes itself after maxLifetime. A zero maxLifetime never expires.
func NewChannelSink(buffer int, maxLifetime time.Duration) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	s := &ChannelSink{ch: make(chan core.ProgressEvent, buffer)}
	if maxLifetime > 0 {
		// held so an early expiry waits for the timer to be recorded
		s.mu.Lock()
		s.timer = time.AfterFunc(maxLifetime, func() { _ = s.Close() })
		s.mu.Unlock()
	}
	return s
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan core.ProgressEvent {
	return s.ch
}

// Send enqueues event without blocking.
func (s *ChannelSink) Send(event core.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.ch <- event:
		return nil
	default:
		return ErrSinkFull
	}
}

// Close closes the channel. Buffered events stay readable.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.ch)
	return nil
}
