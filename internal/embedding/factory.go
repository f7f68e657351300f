package embedding

import (
	"fmt"

	"github.com/hyperjump/pad/internal/config"
)

// Provider names accepted by New.
const (
	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// New constructs the configured embedder, wrapped in an LRU cache when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", ProviderONNX:
		var onnx *ONNXEmbedder
		onnx, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err == nil {
			e = onnx
		}
	case ProviderOllama:
		var ollama *OllamaEmbedder
		ollama, err = NewOllamaEmbedder(OllamaConfig{
			URL:               cfg.OllamaURL,
			Model:             cfg.OllamaModel,
			Dimensions:        cfg.Dimensions,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err == nil {
			e = ollama
		}
	case ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%s embedder: %w", cfg.Provider, err)
	}
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}
