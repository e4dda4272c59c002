// Package notes implements a notebook of free-text notes with searchable tags.
package notes

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrEmptyNote    = errors.New("note text is empty")
	ErrInvalidTag   = errors.New("tag must be a single non-empty word")
	ErrNoteNotFound = errors.New("note not found")
)

// Tags is a set of unique lowercase tags kept in insertion order.
type Tags []string

// Add inserts tag unless an equal tag (ignoring case) is already present.
func (t *Tags) Add(tag string) error {
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}
	if !slices.Contains(*t, tag) {
		*t = append(*t, tag)
	}
	return nil
}

// Delete removes tag and reports whether it was present.
func (t *Tags) Delete(tag string) bool {
	i := slices.Index(*t, strings.ToLower(strings.TrimSpace(tag)))
	if i < 0 {
		return false
	}
	*t = slices.Delete(*t, i, i+1)
	return true
}

// Has reports whether tag is present, ignoring case.
func (t Tags) Has(tag string) bool {
	return slices.Contains(t, strings.ToLower(strings.TrimSpace(tag)))
}

// String joins the tags sorted alphabetically with ", ".
func (t Tags) String() string {
	sorted := slices.Clone(t)
	slices.Sort(sorted)
	return strings.Join(sorted, ", ")
}

func normalizeTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return strings.ToLower(tag), nil
}

// Note is a piece of text with tags.
type Note struct {
	ID        string
	Text      string
	Tags      Tags
	CreatedAt time.Time
}

// NewNote validates text and returns a note with a fresh ID.
func NewNote(text string, now time.Time) (*Note, error) {
	n := &Note{ID: uuid.NewString(), CreatedAt: now}
	if err := n.SetText(text); err != nil {
		return nil, err
	}
	return n, nil
}

// SetText replaces the note text. Blank text is rejected.
func (n *Note) SetText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyNote
	}
	n.Text = text
	return nil
}

// Entry is a note as presented to the user.
type Entry struct {
	Pos  int // 1-based position in the notebook
	Tags string
	Text string
}

// Notebook is an ordered list of notes addressed by 1-based position.
// It is not safe for concurrent use.
type Notebook struct {
	notes []*Note
	now   func() time.Time
}

// NewNotebook returns an empty notebook.
func NewNotebook() *Notebook {
	return &Notebook{now: time.Now}
}

// SetClock replaces the time source used to stamp new notes.
func (b *Notebook) SetClock(now func() time.Time) {
	b.now = now
}

// Append adds an existing note, used when restoring from storage.
func (b *Notebook) Append(n *Note) {
	b.notes = append(b.notes, n)
}

// Notes returns the notes in order. The slice must not be modified.
func (b *Notebook) Notes() []*Note { return b.notes }

// Len returns the number of notes.
func (b *Notebook) Len() int { return len(b.notes) }

// Get returns the note at pos.
func (b *Notebook) Get(pos int) (*Note, error) {
	if pos < 1 || pos > len(b.notes) {
		return nil, fmt.Errorf("%w: #%d", ErrNoteNotFound, pos)
	}
	return b.notes[pos-1], nil
}

// Contains reports whether a note with the given ID exists.
func (b *Notebook) Contains(id string) bool {
	return slices.ContainsFunc(b.notes, func(n *Note) bool { return n.ID == id })
}

// Add creates a note from text and appends it.
func (b *Notebook) Add(text string) (*Note, error) {
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	n, err := NewNote(text, now())
	if err != nil {
		return nil, err
	}
	b.notes = append(b.notes, n)
	return n, nil
}

// Edit replaces the text of the note at pos.
func (b *Notebook) Edit(pos int, text string) error {
	n, err := b.Get(pos)
	if err != nil {
		return err
	}
	return n.SetText(text)
}

// Delete removes the note at pos.
func (b *Notebook) Delete(pos int) error {
	if _, err := b.Get(pos); err != nil {
		return err
	}
	b.notes = slices.Delete(b.notes, pos-1, pos)
	return nil
}

// AddTag attaches tag to the note at pos.
func (b *Notebook) AddTag(pos int, tag string) error {
	n, err := b.Get(pos)
	if err != nil {
		return err
	}
	return n.Tags.Add(tag)
}

// DeleteTag detaches tag from the note at pos and reports whether it was there.
func (b *Notebook) DeleteTag(pos int, tag string) (bool, error) {
	n, err := b.Get(pos)
	if err != nil {
		return false, err
	}
	return n.Tags.Delete(tag), nil
}

// List returns every note as an Entry.
func (b *Notebook) List() []Entry {
	return b.entries(func(*Note) bool { return true })
}

// Find returns notes whose text contains query, ignoring case.
func (b *Notebook) Find(query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return b.entries(func(n *Note) bool {
		return strings.Contains(strings.ToLower(n.Text), q)
	})
}

// FindByTag returns notes carrying tag.
func (b *Notebook) FindByTag(tag string) []Entry {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	return b.entries(func(n *Note) bool { return n.Tags.Has(tag) })
}

// SortByTag returns all notes ordered by their tag string. Notes with equal
// tags keep notebook order.
func (b *Notebook) SortByTag(reverse bool) []Entry {
	out := b.List()
	sort.SliceStable(out, func(i, j int) bool {
		if reverse {
			return out[i].Tags > out[j].Tags
		}
		return out[i].Tags < out[j].Tags
	})
	return out
}

func (b *Notebook) entries(keep func(*Note) bool) []Entry {
	var out []Entry
	for i, n := range b.notes {
		if keep(n) {
			out = append(out, Entry{Pos: i + 1, Tags: n.Tags.String(), Text: n.Text})
		}
	}
	return out
}
