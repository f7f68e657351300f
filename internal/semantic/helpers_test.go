package semantic

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/pad/internal/embedding"
	"github.com/hyperjump/pad/internal/store"
)

// topicEmbedder places words on topic axes so that related phrases embed
// close together. Unknown words land on one of a few hash buckets.
type topicEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
	dims  int // overrides the output length when non-zero
}

var topics = []map[string]bool{
	{"buy": true, "milk": true, "eggs": true, "groceries": true, "bread": true, "shop": true},
	{"read": true, "book": true, "novel": true, "library": true},
	{"call": true, "mom": true, "phone": true, "email": true},
}

const unknownBuckets = 8

func (e *topicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyText
	}
	vec := make([]float32, len(topics)+unknownBuckets)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		matched := false
		for i, topic := range topics {
			if topic[w] {
				vec[i]++
				matched = true
			}
		}
		if !matched && len(w) > 1 {
			vec[len(topics)+embedding.HashString(w)%unknownBuckets]++
		}
	}
	if e.dims > 0 {
		vec = make([]float32, e.dims)
		vec[0] = 1
	}
	return vec, nil
}

func (e *topicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *topicEmbedder) Dimensions() int { return len(topics) + unknownBuckets }
func (e *topicEmbedder) Close() error    { return nil }

func (e *topicEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// flakyPersister fails Save while failSave is set.
type flakyPersister struct {
	store.Persister
	failSave bool
}

var errDiskFull = errors.New("disk full")

func (p *flakyPersister) Save(records []store.NoteRecord) error {
	if p.failSave {
		return errDiskFull
	}
	return p.Persister.Save(records)
}

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "embeddings.json")
}

func newService(t *testing.T, emb embedding.Embedder, path string, opts ...Option) *Service {
	t.Helper()
	svc, err := New(emb, store.New(store.NewFilePersister(path)), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}
