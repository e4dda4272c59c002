package contacts

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPhoneNotFound = errors.New("phone not found")
	ErrEmailNotFound = errors.New("email not found")
)

// Record is a single contact and everything known about it.
type Record struct {
	ID       string
	Name     string
	Phones   []Phone
	Emails   []Email
	Birthday *Birthday
	Address  string
}

// NewRecord creates an empty record with a fresh ID.
func NewRecord(name string) (*Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Record{ID: uuid.NewString(), Name: name}, nil
}

// AddPhone validates and appends a phone. Adding a number twice is a no-op.
func (r *Record) AddPhone(value string) error {
	p, err := NewPhone(value)
	if err != nil {
		return err
	}
	if !slices.Contains(r.Phones, p) {
		r.Phones = append(r.Phones, p)
	}
	return nil
}

// RemovePhone deletes a phone and reports whether it was present.
func (r *Record) RemovePhone(value string) bool {
	i := slices.Index(r.Phones, Phone(strings.TrimSpace(value)))
	if i < 0 {
		return false
	}
	r.Phones = slices.Delete(r.Phones, i, i+1)
	return true
}

// EditPhone replaces old with a validated new number.
func (r *Record) EditPhone(old, value string) error {
	i := slices.Index(r.Phones, Phone(strings.TrimSpace(old)))
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPhoneNotFound, old)
	}
	p, err := NewPhone(value)
	if err != nil {
		return err
	}
	if j := slices.Index(r.Phones, p); j >= 0 && j != i {
		// new number already listed, collapse the duplicate
		r.Phones = slices.Delete(r.Phones, i, i+1)
		return nil
	}
	r.Phones[i] = p
	return nil
}

// FindPhone returns the stored phone equal to value.
func (r *Record) FindPhone(value string) (Phone, bool) {
	p := Phone(strings.TrimSpace(value))
	if slices.Contains(r.Phones, p) {
		return p, true
	}
	return "", false
}

// AddEmail validates and appends an e-mail. Duplicates are ignored.
func (r *Record) AddEmail(value string) error {
	e, err := NewEmail(value)
	if err != nil {
		return err
	}
	if !slices.Contains(r.Emails, e) {
		r.Emails = append(r.Emails, e)
	}
	return nil
}

// RemoveEmail deletes an e-mail and reports whether it was present.
func (r *Record) RemoveEmail(value string) bool {
	i := slices.Index(r.Emails, Email(strings.TrimSpace(value)))
	if i < 0 {
		return false
	}
	r.Emails = slices.Delete(r.Emails, i, i+1)
	return true
}

// EditEmail replaces old with a validated new address.
func (r *Record) EditEmail(old, value string) error {
	i := slices.Index(r.Emails, Email(strings.TrimSpace(old)))
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrEmailNotFound, old)
	}
	e, err := NewEmail(value)
	if err != nil {
		return err
	}
	if j := slices.Index(r.Emails, e); j >= 0 && j != i {
		r.Emails = slices.Delete(r.Emails, i, i+1)
		return nil
	}
	r.Emails[i] = e
	return nil
}

// FindEmail returns the stored e-mail equal to value.
func (r *Record) FindEmail(value string) (Email, bool) {
	e := Email(strings.TrimSpace(value))
	if slices.Contains(r.Emails, e) {
		return e, true
	}
	return "", false
}

// SetBirthday parses value and assigns it, rejecting future dates.
func (r *Record) SetBirthday(value string, today time.Time) error {
	b, err := NewBirthday(value, today)
	if err != nil {
		return err
	}
	r.Birthday = &b
	return nil
}

// SetAddress assigns a trimmed address. An empty value clears it.
func (r *Record) SetAddress(value string) {
	r.Address = strings.TrimSpace(value)
}

// PhoneList joins the phones with sep.
func (r *Record) PhoneList(sep string) string {
	parts := make([]string, len(r.Phones))
	for i, p := range r.Phones {
		parts[i] = string(p)
	}
	return strings.Join(parts, sep)
}

// EmailList joins the e-mails with sep.
func (r *Record) EmailList(sep string) string {
	parts := make([]string, len(r.Emails))
	for i, e := range r.Emails {
		parts[i] = string(e)
	}
	return strings.Join(parts, sep)
}

func (r *Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Contact name: %s, phones: %s", r.Name, r.PhoneList("; "))
	if len(r.Emails) > 0 {
		fmt.Fprintf(&sb, ", emails: %s", r.EmailList("; "))
	}
	if r.Address != "" {
		fmt.Fprintf(&sb, ", address: %s", r.Address)
	}
	if r.Birthday != nil {
		fmt.Fprintf(&sb, ", birthday: %s", r.Birthday)
	}
	return sb.String()
}
