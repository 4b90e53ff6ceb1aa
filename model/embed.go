package model

import "context"

// EmbedderClient turns text into a deterministic, L2-normalizable vector.
// VectorMemoryStore depends on this interface for semantic search; embedding
// model selection itself is out of scope (spec §1) — any implementation
// (OpenAI, a local model, a test double) plugs in here unchanged.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}
