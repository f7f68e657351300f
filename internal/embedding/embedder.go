// Package embedding turns note text into vectors.
//
// Providers: a local ONNX sentence-embedding model (requires CGO), an Ollama
// server, and a deterministic mock used by tests and offline setups. Vectors
// returned by an Embedder are not necessarily unit length; callers normalize.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed text with no content.
var ErrEmptyText = errors.New("empty text")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach implements EmbedBatch on top of a single-text embed function.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
