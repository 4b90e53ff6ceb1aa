package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyrmwatch/sentinel/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder implements model.EmbedderClient against OpenAI's embeddings
// API, the provider VectorMemoryStore defaults to when no other embedder
// is configured.
type Embedder struct {
	apiKey    string
	modelName string
}

// NewEmbedder returns an Embedder using modelName ("text-embedding-3-small"
// when empty).
func NewEmbedder(apiKey, modelName string) *Embedder {
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	return &Embedder{apiKey: apiKey, modelName: modelName}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("openai: empty embedding response")
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	client := openaisdk.NewClient(option.WithAPIKey(e.apiKey))
	resp, err := client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.modelName),
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}

	out := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
