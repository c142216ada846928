// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without external AI services and give controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	completer := mock.NewMockCompleter()
//	completer.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
//	    return `{"impact": 12, "innovation": 9, "timeliness": 10}`, nil
//	}
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0, 0}, nil
//	}
//
//	count := completer.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors derived from a text hash
//   - MockCompleter: replies "{}"
//   - MockProvider: aggregates a mock embedder and completer
package mock
