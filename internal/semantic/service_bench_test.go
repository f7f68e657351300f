package semantic

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/pad/internal/embedding"
	"github.com/hyperjump/pad/internal/store"
)

func newBenchService(b *testing.B, notes int) *Service {
	b.Helper()
	svc, err := New(embedding.NewMockEmbedder(384),
		store.New(store.NewFilePersister(filepath.Join(b.TempDir(), "embeddings.json"))))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = svc.Close() })
	loadCorpus(b, svc, buildCorpus(notes))
	return svc
}

func BenchmarkService_Search(b *testing.B) {
	svc := newBenchService(b, 500)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.Search(ctx, "pay the electricity bill", 10)
	}
}

func BenchmarkService_AddNote(b *testing.B) {
	svc := newBenchService(b, 100)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = svc.AddNote(ctx, "benchmark note text")
	}
}

func BenchmarkService_RemoveNote(b *testing.B) {
	svc := newBenchService(b, 200)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		_ = svc.AddNote(ctx, "transient note")
		b.StartTimer()
		_, _ = svc.RemoveNote(ctx, "transient note")
	}
}
