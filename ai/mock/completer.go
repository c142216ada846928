package mock

import (
	"context"
	"sync"

	"github.com/poiesic/newswire/ai"
)

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	// CompleteFunc produces the reply for both Complete and CompleteJSON.
	// If nil, the reply is "{}".
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
	jsonOps int
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer that answers "{}".
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns the injected reply.
func (m *MockCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, prompt)
	}
	return "{}", nil
}

// CompleteJSON decodes the injected reply the way production completers do,
// in a single attempt.
func (m *MockCompleter) CompleteJSON(ctx context.Context, system, prompt string, out any) error {
	m.mu.Lock()
	m.jsonOps++
	m.mu.Unlock()

	text, err := m.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	return ai.DecodeObject(text, out)
}

// CallCount returns the number of completions requested.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// JSONCallCount returns how many completions went through CompleteJSON.
func (m *MockCompleter) JSONCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jsonOps
}

// Prompts returns a copy of every user prompt received, in order.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears recorded calls and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.jsonOps = 0
	m.CompleteFunc = nil
}
