package ai

import "context"

// Generator produces text from a prompt. An empty model selects the
// implementation's configured primary model.
type Generator interface {
	Generate(ctx context.Context, prompt, model string, maxTokens int) (string, error)
}

// Embedder turns text into fixed-dimension, unit-normalized vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
