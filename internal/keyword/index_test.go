package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/pad/internal/notes"
)

func testNotes() []notes.Note {
	return []notes.Note{
		{Index: 0, Category: "groceries", Text: "buy milk and bread"},
		{Index: 1, Category: "work", Text: "ship the release notes"},
		{Index: 2, Category: "general", Text: "call mom about groceries"},
		{Index: 3, Category: "general", Text: "read a book"},
	}
}

func newTestIndex(t *testing.T) *NoteIndex {
	t.Helper()
	idx, err := NewNoteIndex()
	if err != nil {
		t.Fatalf("NewNoteIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	if err := idx.Rebuild(testNotes()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return idx
}

func TestNoteIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	got, err := idx.Search(ctx, "Milk", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Index != 0 {
		t.Errorf("Search(Milk) = %+v", got)
	}

	got, err = idx.Search(ctx, "groceries", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Search(groceries) = %+v, want notes 0 and 2", got)
	}

	count, err := idx.DocCount()
	if err != nil || count != 4 {
		t.Errorf("DocCount = %d, %v", count, err)
	}
}

func TestNoteIndex_CategoryBoost(t *testing.T) {
	idx := newTestIndex(t)
	got, err := idx.Search(context.Background(), "groceries", 10, &SearchOptions{CategoryBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Index != 0 {
		t.Errorf("boosted search = %+v, want note 0 first", got)
	}
}

func TestNoteIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	got, err := idx.Search(ctx, "relase", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("exact search for a typo matched %+v", got)
	}

	got, err = idx.Search(ctx, "relase", 10, &SearchOptions{Fuzzy: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Index != 1 {
		t.Errorf("fuzzy search = %+v", got)
	}
}

func TestNoteIndex_EmptyQueryAndLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if got, err := idx.Search(ctx, "  ", 10, nil); err != nil || len(got) != 0 {
		t.Errorf("empty query = %v, %v", got, err)
	}
	if got, err := idx.Search(ctx, "groceries", 0, nil); err != nil || len(got) != 0 {
		t.Errorf("zero limit = %v, %v", got, err)
	}
	got, err := idx.Search(ctx, "groceries", 1, nil)
	if err != nil || len(got) != 1 {
		t.Errorf("limit 1 = %v, %v", got, err)
	}
}

func TestNoteIndex_RebuildReplaces(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Rebuild([]notes.Note{{Index: 0, Category: "x", Text: "only note"}}); err != nil {
		t.Fatal(err)
	}
	got, err := idx.Search(context.Background(), "milk", 10, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("stale results after rebuild: %v, %v", got, err)
	}
}

func TestNoteIndex_TermsFeedSpellChecker(t *testing.T) {
	idx := newTestIndex(t)
	terms, err := idx.Terms()
	if err != nil {
		t.Fatal(err)
	}
	if terms["groceries"] != 1 {
		t.Errorf("groceries frequency = %d, want 1", terms["groceries"])
	}
	if terms["milk"] != 1 {
		t.Errorf("milk frequency = %d, want 1", terms["milk"])
	}

	sc := NewSpellChecker(idx)
	if q := sc.SuggestedQuery("grocreies"); q != "groceries" {
		t.Errorf("SuggestedQuery = %q", q)
	}
}
