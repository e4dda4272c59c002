package notes

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestNotebook(t *testing.T, texts ...string) *Notebook {
	t.Helper()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	nb := &Notebook{now: func() time.Time { return created }}
	for _, text := range texts {
		if _, err := nb.Add(text); err != nil {
			t.Fatalf("Add(%q): %v", text, err)
		}
	}
	return nb
}

func TestTags(t *testing.T) {
	var tags Tags
	for _, tag := range []string{"Work", "home", "WORK", " urgent "} {
		if err := tags.Add(tag); err != nil {
			t.Fatalf("Add(%q): %v", tag, err)
		}
	}
	if diff := cmp.Diff(Tags{"work", "home", "urgent"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got := tags.String(); got != "home, urgent, work" {
		t.Errorf("String() = %q", got)
	}
	if !tags.Has("HOME") {
		t.Error("Has should ignore case")
	}
	if !tags.Delete("Home") || tags.Delete("home") {
		t.Error("Delete should remove exactly once")
	}
	for _, bad := range []string{"", "  ", "two words"} {
		if err := tags.Add(bad); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("Add(%q) error = %v, want ErrInvalidTag", bad, err)
		}
	}
}

func TestNotebook_AddAndList(t *testing.T) {
	nb := newTestNotebook(t, "Buy milk", "  Call mom  ")

	if _, err := nb.Add("   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}

	want := []Entry{
		{Pos: 1, Text: "Buy milk"},
		{Pos: 2, Text: "Call mom"},
	}
	if diff := cmp.Diff(want, nb.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	n, err := nb.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if n.ID == "" || n.CreatedAt.IsZero() {
		t.Errorf("note missing identity: %+v", n)
	}
	if !nb.Contains(n.ID) {
		t.Error("Contains should find the note by ID")
	}
}

func TestNotebook_EditDelete(t *testing.T) {
	nb := newTestNotebook(t, "first", "second", "third")

	if err := nb.Edit(2, "SECOND"); err != nil {
		t.Fatal(err)
	}
	if err := nb.Edit(2, " "); !errors.Is(err, ErrEmptyNote) {
		t.Errorf("Edit with blank text: %v", err)
	}
	if err := nb.Edit(4, "x"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("Edit out of range: %v", err)
	}
	if err := nb.Delete(1); err != nil {
		t.Fatal(err)
	}
	if err := nb.Delete(0); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("Delete(0): %v", err)
	}

	want := []Entry{{Pos: 1, Text: "SECOND"}, {Pos: 2, Text: "third"}}
	if diff := cmp.Diff(want, nb.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestNotebook_Find(t *testing.T) {
	nb := newTestNotebook(t, "Buy MILK", "walk the dog", "milkshake recipe")

	got := nb.Find("milk")
	want := []Entry{{Pos: 1, Text: "Buy MILK"}, {Pos: 3, Text: "milkshake recipe"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
	if got := nb.Find(""); got != nil {
		t.Errorf("empty query should return nothing, got %v", got)
	}
}

func TestNotebook_Tags(t *testing.T) {
	nb := newTestNotebook(t, "a", "b", "c")
	mustTag := func(pos int, tag string) {
		t.Helper()
		if err := nb.AddTag(pos, tag); err != nil {
			t.Fatalf("AddTag(%d, %q): %v", pos, tag, err)
		}
	}
	mustTag(1, "work")
	mustTag(2, "Home")
	mustTag(3, "work")
	mustTag(3, "alpha")

	if err := nb.AddTag(9, "x"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("AddTag out of range: %v", err)
	}

	byTag := nb.FindByTag("WORK")
	want := []Entry{{Pos: 1, Tags: "work", Text: "a"}, {Pos: 3, Tags: "alpha, work", Text: "c"}}
	if diff := cmp.Diff(want, byTag); diff != "" {
		t.Errorf("FindByTag mismatch (-want +got):\n%s", diff)
	}

	asc := nb.SortByTag(false)
	if diff := cmp.Diff([]int{3, 2, 1}, positions(asc)); diff != "" {
		t.Errorf("SortByTag asc (-want +got):\n%s", diff)
	}
	desc := nb.SortByTag(true)
	if diff := cmp.Diff([]int{1, 2, 3}, positions(desc)); diff != "" {
		t.Errorf("SortByTag desc (-want +got):\n%s", diff)
	}

	removed, err := nb.DeleteTag(3, "ALPHA")
	if err != nil || !removed {
		t.Fatalf("DeleteTag: removed=%v err=%v", removed, err)
	}
	removed, _ = nb.DeleteTag(3, "alpha")
	if removed {
		t.Error("second DeleteTag should report false")
	}
}

func positions(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Pos
	}
	return out
}
