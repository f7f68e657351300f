package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	var got ollamaEmbedRequest
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ollamaEmbedPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25,0.125]}`))
	})

	e, err := NewOllamaEmbedder(OllamaConfig{URL: srv.URL + "/", Model: "m", Dimensions: 3})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vec)
	assert.Equal(t, ollamaEmbedRequest{Model: "m", Prompt: "hello"}, got)
	assert.Equal(t, 3, e.Dimensions())
}

func TestOllamaEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "model not found", "500"},
		{"bad json", http.StatusOK, "{", "decode"},
		{"wrong dims", http.StatusOK, `{"embedding":[1,2]}`, "dimensions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			e, err := NewOllamaEmbedder(OllamaConfig{URL: srv.URL, Dimensions: 3})
			require.NoError(t, err)

			_, err = e.Embed(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestOllamaEmbedder_EmptyText(t *testing.T) {
	e, err := NewOllamaEmbedder(OllamaConfig{Dimensions: 3})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "")
	assert.True(t, errors.Is(err, ErrEmptyText))
}

func TestOllamaEmbedder_Timeout(t *testing.T) {
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"embedding":[1,2,3]}`))
	})
	e, err := NewOllamaEmbedder(OllamaConfig{URL: srv.URL, Dimensions: 3, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "slow")
	assert.Error(t, err)
}

func TestNewOllamaEmbedder_Validation(t *testing.T) {
	_, err := NewOllamaEmbedder(OllamaConfig{Dimensions: 0})
	assert.Error(t, err)
	_, err = NewOllamaEmbedder(OllamaConfig{URL: "localhost:11434", Dimensions: 3})
	assert.Error(t, err)
}
