// Package contacts holds the address book: validated contact fields, records,
// upcoming birthday calculation and contact search.
package contacts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BirthdayLayout is how birthdays are displayed and stored (DD.MM.YYYY).
const BirthdayLayout = "02.01.2006"

// birthdayInputLayout also accepts single-digit days and months ("1.3.1990").
const birthdayInputLayout = "2.1.2006"

// PhoneDigits is the exact number of digits in a phone number.
const PhoneDigits = 12

var (
	ErrEmptyName       = errors.New("contact name is empty")
	ErrInvalidPhone    = fmt.Errorf("phone must contain %d characters and only numbers", PhoneDigits)
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidBirthday = errors.New("invalid date format, use DD.MM.YYYY")
	ErrFutureBirthday  = errors.New("date must be in the past")
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Phone is a phone number of exactly PhoneDigits digits.
type Phone string

// NewPhone trims and validates a phone number.
func NewPhone(value string) (Phone, error) {
	cleaned := strings.TrimSpace(value)
	if len(cleaned) != PhoneDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, value)
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, value)
		}
	}
	return Phone(cleaned), nil
}

func (p Phone) String() string { return string(p) }

// Email is a syntactically valid e-mail address.
type Email string

// NewEmail trims and validates an e-mail address.
func NewEmail(value string) (Email, error) {
	cleaned := strings.TrimSpace(value)
	if !emailPattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, value)
	}
	return Email(cleaned), nil
}

func (e Email) String() string { return string(e) }

// Birthday is a calendar date without time of day.
type Birthday struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseBirthday parses a DD.MM.YYYY date without checking it against today.
// Leading zeros are optional. Used when restoring data that was validated
// on the way in.
func ParseBirthday(value string) (Birthday, error) {
	t, err := time.Parse(birthdayInputLayout, strings.TrimSpace(value))
	if err != nil {
		return Birthday{}, fmt.Errorf("%w: %q", ErrInvalidBirthday, value)
	}
	return Birthday{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// NewBirthday parses a DD.MM.YYYY date and rejects dates after today.
func NewBirthday(value string, today time.Time) (Birthday, error) {
	b, err := ParseBirthday(value)
	if err != nil {
		return Birthday{}, err
	}
	if b.Date().After(dateOf(today)) {
		return Birthday{}, fmt.Errorf("%w: %s", ErrFutureBirthday, b)
	}
	return b, nil
}

// Date returns the birthday as a UTC midnight time.
func (b Birthday) Date() time.Time {
	return time.Date(b.Year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
}

func (b Birthday) String() string {
	return b.Date().Format(BirthdayLayout)
}

// dateOf truncates t to its calendar date in UTC, keeping t's local Y/M/D.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
