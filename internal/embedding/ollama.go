package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "all-minilm"
	ollamaEmbedPath    = "/api/embeddings"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	URL        string
	Model      string
	Dimensions int
	Timeout    time.Duration
	// RequestsPerSecond limits calls to the server; zero means unlimited.
	RequestsPerSecond float64
}

// OllamaEmbedder calls an Ollama server's embeddings endpoint.
type OllamaEmbedder struct {
	url        string
	model      string
	dimensions int
	client     *http.Client
	limiter    *rate.Limiter
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder returns an embedder for the configured server. No request
// is made until the first Embed call.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions %d", cfg.Dimensions)
	}
	url := strings.TrimSuffix(cfg.URL, "/")
	if url == "" {
		url = defaultOllamaURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("invalid ollama url %q", cfg.URL)
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &OllamaEmbedder{
		url:        url,
		model:      model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
		limiter:    limiter,
	}, nil
}

// Embed requests the embedding of text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ollama rate limit: %w", err)
	}

	body, err := gojson.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+ollamaEmbedPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaEmbedResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama decode: %w", err)
	}
	if len(out.Embedding) != e.dimensions {
		return nil, fmt.Errorf("ollama returned %d dimensions, expected %d", len(out.Embedding), e.dimensions)
	}
	return out.Embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
