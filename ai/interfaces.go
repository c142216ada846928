package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer runs chat completions against a language model.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends a system and user prompt and returns the raw reply text.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// CompleteJSON asks for a JSON object and decodes it into out.
	// Markdown fences and common key-quoting mistakes are repaired before
	// decoding. Returns ErrMalformedResponse if no attempt decodes.
	CompleteJSON(ctx context.Context, system, prompt string, out any) error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the chat completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
