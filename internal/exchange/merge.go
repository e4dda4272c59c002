package exchange

import (
	"errors"
	"fmt"
	"time"

	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"
)

// MergeStats counts what Merge changed.
type MergeStats struct {
	ContactsAdded   int
	ContactsUpdated int
	NotesAdded      int
	NotesSkipped    int // already present by ID
}

// Changed reports whether anything was merged.
func (s MergeStats) Changed() bool {
	return s.ContactsAdded+s.ContactsUpdated+s.NotesAdded > 0
}

func (s MergeStats) String() string {
	return fmt.Sprintf("%d contacts added, %d updated, %d notes added, %d skipped",
		s.ContactsAdded, s.ContactsUpdated, s.NotesAdded, s.NotesSkipped)
}

// Merge folds docs into book and nb. Contacts match by name: phones and
// emails are added without duplicates, birthday and address are only filled
// when missing. Notes are appended unless a note with the same ID exists.
// Invalid values are skipped and reported in the returned error; everything
// valid is still merged.
func Merge(book *contacts.AddressBook, nb *notes.Notebook, docs []*Document, today time.Time) (MergeStats, error) {
	var (
		stats MergeStats
		errs  []error
	)
	for _, doc := range docs {
		for _, c := range doc.Contacts {
			added, updated, err := mergeContact(book, c, today)
			if added {
				stats.ContactsAdded++
			} else if updated {
				stats.ContactsUpdated++
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
		for _, n := range doc.Notes {
			if n.ID != "" && nb.Contains(n.ID) {
				stats.NotesSkipped++
				continue
			}
			note, err := buildNote(n, today)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			nb.Append(note)
			stats.NotesAdded++
		}
	}
	logging.Exchange("merge: %s (%d problems)", stats, len(errs))
	return stats, errors.Join(errs...)
}

func mergeContact(book *contacts.AddressBook, c ContactDoc, today time.Time) (added, updated bool, err error) {
	r, exists := book.Find(c.Name)
	if !exists {
		r, err = contacts.NewRecord(c.Name)
		if err != nil {
			return false, false, err
		}
		// A renamed or foreign contact may carry an ID already in the book.
		if _, taken := book.FindByID(c.ID); c.ID != "" && !taken {
			r.ID = c.ID
		}
	}

	var errs []error
	before := len(r.Phones) + len(r.Emails)
	for _, p := range c.Phones {
		if err := r.AddPhone(p); err != nil {
			errs = append(errs, fmt.Errorf("contact %q: %w", c.Name, err))
		}
	}
	for _, e := range c.Emails {
		if err := r.AddEmail(e); err != nil {
			errs = append(errs, fmt.Errorf("contact %q: %w", c.Name, err))
		}
	}
	changed := len(r.Phones)+len(r.Emails) != before

	if r.Birthday == nil && c.Birthday != "" {
		if err := r.SetBirthday(c.Birthday, today); err != nil {
			errs = append(errs, fmt.Errorf("contact %q: %w", c.Name, err))
		} else {
			changed = true
		}
	}
	if r.Address == "" && c.Address != "" {
		r.SetAddress(c.Address)
		changed = true
	}

	if !exists {
		book.Add(r)
		return true, false, errors.Join(errs...)
	}
	return false, changed, errors.Join(errs...)
}

func buildNote(n NoteDoc, today time.Time) (*notes.Note, error) {
	created := n.CreatedAt
	if created.IsZero() {
		created = today
	}
	note, err := notes.NewNote(n.Text, created)
	if err != nil {
		return nil, fmt.Errorf("note %q: %w", n.ID, err)
	}
	if n.ID != "" {
		note.ID = n.ID
	}
	for _, tag := range n.Tags {
		if err := note.Tags.Add(tag); err != nil {
			return nil, fmt.Errorf("note %q: %w", n.ID, err)
		}
	}
	return note, nil
}
