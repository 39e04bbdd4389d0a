package domain

import "context"

// EmbeddingResult is a single vector with its token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text via an external embedding API.
//
// EmbedDocuments is order-preserving: result i corresponds to texts[i].
// Implementations may batch internally but must not reorder.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([]EmbeddingResult, error)
	EmbedQuery(ctx context.Context, text string) (EmbeddingResult, error)
}

// GenerationResult is a free-text completion with its token usage.
type GenerationResult struct {
	Text        string
	TotalTokens int
}

// Generator produces a completion from an external generative API.
// Invoked only with retrieved-context-grounded prompts.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (GenerationResult, error)
}

// HealthChecker is implemented by providers that can probe their API.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
