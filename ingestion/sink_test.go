package ingestion

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	kw := "AI"
	require.NoError(t, sink.Send(core.ProgressEvent{Type: core.EventStarted, TotalSteps: 1}))
	require.NoError(t, sink.Send(core.ProgressEvent{Type: core.EventSaveDone, Keyword: &kw, Count: countOf(2)}))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.Send(core.ProgressEvent{}), ErrSinkClosed)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "STARTED", first["type"])
	assert.Nil(t, first["keyword"])
	assert.Nil(t, first["count"])

	var second core.ProgressEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "AI", *second.Keyword)
	assert.Equal(t, 2, *second.Count)
}

func TestChannelSink_FullAndClosed(t *testing.T) {
	sink := NewChannelSink(1, 0)

	require.NoError(t, sink.Send(core.ProgressEvent{Type: core.EventStarted}))
	assert.ErrorIs(t, sink.Send(core.ProgressEvent{Type: core.EventKeywordBegin}), ErrSinkFull)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.Send(core.ProgressEvent{}), ErrSinkClosed)

	e, ok := <-sink.Events()
	require.True(t, ok, "buffered events survive close")
	assert.Equal(t, core.EventStarted, e.Type)
	_, ok = <-sink.Events()
	assert.False(t, ok)
}

func TestChannelSink_Lifetime(t *testing.T) {
	sink := NewChannelSink(4, 20*time.Millisecond)

	select {
	case _, ok := <-sink.Events():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("sink did not expire")
	}
	assert.ErrorIs(t, sink.Send(core.ProgressEvent{}), ErrSinkClosed)
}

func TestChannelSink_ImmediateExpiry(t *testing.T) {
	for range 200 {
		sink := NewChannelSink(1, time.Nanosecond)
		for range sink.Events() {
		}
		assert.ErrorIs(t, sink.Send(core.ProgressEvent{}), ErrSinkClosed)
		assert.NoError(t, sink.Close())
	}
}

func TestListeners_DropFailingSink(t *testing.T) {
	l := newListeners(testLogger())

	full := NewChannelSink(1, 0)
	healthy := NewChannelSink(8, 0)
	l.add(full, func() bool { return false })
	l.add(healthy, func() bool { return false })

	l.broadcast(core.ProgressEvent{Type: core.EventStarted})
	l.broadcast(core.ProgressEvent{Type: core.EventKeywordBegin})
	assert.Equal(t, 1, l.len(), "sink that cannot keep up is dropped")

	released := false
	l.finish(core.ProgressEvent{Type: core.EventCompleted}, func() { released = true })
	assert.True(t, released)
	assert.Zero(t, l.len())

	var got []core.EventType
	for e := range healthy.Events() {
		got = append(got, e.Type)
	}
	assert.Equal(t, []core.EventType{core.EventStarted, core.EventKeywordBegin, core.EventCompleted}, got)
}

func TestSinkFunc(t *testing.T) {
	var got []core.EventType
	sink := SinkFunc(func(e core.ProgressEvent) error {
		got = append(got, e.Type)
		return nil
	})
	require.NoError(t, sink.Send(core.ProgressEvent{Type: core.EventCompleted}))
	require.NoError(t, sink.Close())
	assert.Equal(t, []core.EventType{core.EventCompleted}, got)
}
