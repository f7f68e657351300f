package keyword

import (
	"context"
	"testing"
)

func TestSearchNotes(t *testing.T) {
	ctx := context.Background()

	hits, suggestion, err := SearchNotes(ctx, testNotes(), "release", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Note.Text != "ship the release notes" {
		t.Errorf("hits = %+v", hits)
	}
	if suggestion != "" {
		t.Errorf("suggestion = %q, want none when something matched", suggestion)
	}
}

func TestSearchNotes_Suggestion(t *testing.T) {
	hits, suggestion, err := SearchNotes(context.Background(), testNotes(), "relase", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
	if suggestion != "release" {
		t.Errorf("suggestion = %q, want %q", suggestion, "release")
	}
}

func TestSearchNotes_Empty(t *testing.T) {
	hits, _, err := SearchNotes(context.Background(), nil, "milk", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v", hits)
	}
}
