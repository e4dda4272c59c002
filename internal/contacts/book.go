package contacts

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// DefaultBirthdayWindow is the number of days ahead checked by UpcomingBirthdays
// when the caller has no preference.
const DefaultBirthdayWindow = 7

// Congratulation says when to congratulate a contact.
type Congratulation struct {
	Name string
	Date time.Time
}

func (c Congratulation) String() string {
	return fmt.Sprintf("%s: %s", c.Name, c.Date.Format(BirthdayLayout))
}

// AddressBook stores records keyed by exact name and remembers insertion order.
// It is not safe for concurrent use.
type AddressBook struct {
	records map[string]*Record
	byID    map[string]string
	order   []string
}

// NewAddressBook returns an empty book.
func NewAddressBook() *AddressBook {
	return &AddressBook{records: make(map[string]*Record), byID: make(map[string]string)}
}

// Add stores r, replacing any record with the same name in place.
func (b *AddressBook) Add(r *Record) {
	if old, exists := b.records[r.Name]; !exists {
		b.order = append(b.order, r.Name)
	} else if b.byID[old.ID] == old.Name {
		delete(b.byID, old.ID)
	}
	if r.ID != "" {
		b.byID[r.ID] = r.Name
	}
	b.records[r.Name] = r
}

// Find returns the record with exactly this name.
func (b *AddressBook) Find(name string) (*Record, bool) {
	r, ok := b.records[name]
	return r, ok
}

// FindByID returns the record carrying id.
func (b *AddressBook) FindByID(id string) (*Record, bool) {
	name, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	return b.Find(name)
}

// Delete removes and returns the named record.
func (b *AddressBook) Delete(name string) (*Record, bool) {
	r, ok := b.records[name]
	if !ok {
		return nil, false
	}
	delete(b.records, name)
	if b.byID[r.ID] == name {
		delete(b.byID, r.ID)
	}
	if i := slices.Index(b.order, name); i >= 0 {
		b.order = slices.Delete(b.order, i, i+1)
	}
	return r, true
}

// Records returns all records in insertion order.
func (b *AddressBook) Records() []*Record {
	out := make([]*Record, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.records[name])
	}
	return out
}

// Len returns the number of records.
func (b *AddressBook) Len() int { return len(b.records) }

// UpcomingBirthdays lists contacts whose next birthday falls within days of
// today, both ends inclusive. A Feb 29 birthday is celebrated on Feb 28 in
// non-leap years. With shiftWeekends, weekend dates move to the next Monday.
func (b *AddressBook) UpcomingBirthdays(today time.Time, days int, shiftWeekends bool) []Congratulation {
	start := dateOf(today)
	var result []Congratulation

	for _, r := range b.Records() {
		if r.Birthday == nil {
			continue
		}
		next := nextBirthday(*r.Birthday, start)
		delta := int(next.Sub(start).Hours() / 24)
		if delta < 0 || delta > days {
			continue
		}
		if shiftWeekends {
			switch next.Weekday() {
			case time.Saturday:
				next = next.AddDate(0, 0, 2)
			case time.Sunday:
				next = next.AddDate(0, 0, 1)
			}
		}
		result = append(result, Congratulation{Name: r.Name, Date: next})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func nextBirthday(b Birthday, today time.Time) time.Time {
	this := birthdayIn(b, today.Year())
	if !this.Before(today) {
		return this
	}
	return birthdayIn(b, today.Year()+1)
}

func birthdayIn(b Birthday, year int) time.Time {
	if b.Month == time.February && b.Day == 29 && !isLeap(year) {
		return time.Date(year, time.February, 28, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Search returns records matching query by name, phone, e-mail or address.
// Text fields compare case-insensitively; phones compare digit substrings.
func (b *AddressBook) Search(query string) []*Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	fold := cases.Fold()
	q := fold.String(query)
	contains := func(s string) bool { return strings.Contains(fold.String(s), q) }

	var out []*Record
	for _, r := range b.Records() {
		if contains(r.Name) || (r.Address != "" && contains(r.Address)) {
			out = append(out, r)
			continue
		}
		if slices.ContainsFunc(r.Phones, func(p Phone) bool { return strings.Contains(string(p), query) }) {
			out = append(out, r)
			continue
		}
		if slices.ContainsFunc(r.Emails, func(e Email) bool { return contains(string(e)) }) {
			out = append(out, r)
		}
	}
	return out
}
