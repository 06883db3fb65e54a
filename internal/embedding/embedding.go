// Package embedding adapts an external embedding API to the store.Embedder
// contract. Each call embeds a single text (no batching) and goes through
// the shared retry utility: a small number of attempts with exponential
// backoff, classification-aware so a failure classified as non-retryable
// (auth, quota, not found) fails fast instead of burning the retry budget.
// Any other failure, a bad request included, is classified transient and
// retried.
package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/internal/config"
	"github.com/paperkg/paperkg/internal/resilience"
)

// Adapter calls an OpenAI-compatible embeddings endpoint. It satisfies
// store.Embedder.
type Adapter struct {
	client    openai.Client
	model     string
	dimension int
}

// New builds an Adapter from configuration. BaseURL, when set, points the
// client at a self-hosted or proxy endpoint instead of the public API.
func New(cfg config.EmbeddingConfiguration) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = 768
	}

	return &Adapter{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: dim,
	}
}

// Embed returns the embedding vector for text, retrying transient failures
// via internal/resilience.WithRetry.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := resilience.WithRetry(ctx, "embed text", resilience.Options{}, func(ctx context.Context) error {
		v, err := a.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (a *Adapter) embedOnce(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:          a.model,
		Dimensions:     openai.Int(int64(a.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, apperr.Classify("call embeddings api", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperr.Wrap("call embeddings api", apperr.KindUnknown, fmt.Errorf("empty embeddings response"))
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	return vec, nil
}
