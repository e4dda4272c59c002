package bot

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"assistbot/internal/contacts"
	"assistbot/internal/notes"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Wednesday.
var fixedNow = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

func newTestBot(t *testing.T, opts ...Option) *Bot {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(nil, nil, opts...)
}

// run executes each line and fails the test on an error reply.
func run(t *testing.T, b *Bot, lines ...string) {
	t.Helper()
	for _, line := range lines {
		r := b.Execute(line)
		require.NotEqual(t, ToneError, r.Tone, "%q: %s", line, r.Text)
	}
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseInput(t *testing.T) {
	tests := []struct {
		line string
		cmd  Command
		args []string
		ok   bool
	}{
		{"hello", CmdHello, []string{}, true},
		{"  ADD   John   380501234567 ", CmdAdd, []string{"John", "380501234567"}, true},
		{"Change-Phone a b c", CmdChangePhone, []string{"a", "b", "c"}, true},
		{"close", CmdClose, []string{}, true},
		{"fly away", Command("fly"), []string{"away"}, false},
		{"   ", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, args, ok := ParseInput(tt.line)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.ok, ok)
			if diff := cmp.Diff(tt.args, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllCommands(t *testing.T) {
	all := AllCommands()
	assert.Equal(t, "hello", all[0])
	assert.Contains(t, all, "sort-notes")
	assert.Contains(t, all, "close")
	for _, c := range all {
		_, _, ok := ParseInput(c)
		assert.True(t, ok, c)
	}
}

func TestMenu(t *testing.T) {
	menu := MenuText()
	assert.True(t, strings.HasPrefix(menu, "Main menu:"))
	assert.Contains(t, menu, "add <name> [phone] - create a contact or add a phone")
	assert.Contains(t, MenuMarkdown(), "| `birthdays [days]` |")
}

// =============================================================================
// GREETINGS
// =============================================================================

func TestGreetingsAndExit(t *testing.T) {
	b := newTestBot(t)

	r := b.Execute("hello")
	assert.Equal(t, Reply{Text: "How can I help you?", Tone: ToneInfo}, r)

	r = b.Execute("help")
	assert.True(t, r.Help)
	assert.Equal(t, ToneInfo, r.Tone)

	for _, word := range []string{"exit", "CLOSE"} {
		r = b.Execute(word)
		assert.True(t, r.Quit)
		assert.Equal(t, "Good bye!", r.Text)
	}

	r = b.Execute("dance")
	assert.Equal(t, Reply{Text: "Invalid command.", Tone: ToneError}, r)

	assert.Equal(t, Reply{}, b.Execute(""))
}

// =============================================================================
// CONTACTS
// =============================================================================

func TestAddContact(t *testing.T) {
	b := newTestBot(t)

	r := b.Execute("add John 380501234567")
	assert.Equal(t, Reply{Text: "Contact added.", Tone: ToneSuccess, Mutated: true}, r)

	r = b.Execute("add John 380509999999")
	assert.Equal(t, "Contact updated.", r.Text)

	r = b.Execute("add Jane")
	assert.Equal(t, "Contact added.", r.Text)

	rec, ok := b.book.Find("John")
	require.True(t, ok)
	assert.Equal(t, []contacts.Phone{"380501234567", "380509999999"}, rec.Phones)
}

func TestAddContact_InvalidPhoneDoesNotCreate(t *testing.T) {
	b := newTestBot(t)

	r := b.Execute("add John 123")
	assert.Equal(t, ToneError, r.Tone)
	assert.True(t, strings.HasPrefix(r.Text, "Invalid phone number.\n"), r.Text)
	assert.Contains(t, r.Text, "12 characters")
	assert.Equal(t, 0, b.book.Len())
}

func TestMissingArguments(t *testing.T) {
	b := newTestBot(t)

	r := b.Execute("add")
	assert.Equal(t, ToneError, r.Tone)
	assert.Equal(t, "Give me name and phone please.\nnot enough arguments, usage: add <name> [phone]", r.Text)

	r = b.Execute("phones")
	assert.True(t, strings.HasPrefix(r.Text, "Enter user name\n"))

	r = b.Execute("all extra") // extra arguments are ignored
	assert.Equal(t, "Address book is empty.", r.Text)

	r = b.Execute("sort-notes sideways")
	assert.True(t, strings.HasPrefix(r.Text, "Sort order must be asc or desc.\n"))
}

func TestPhones(t *testing.T) {
	b := newTestBot(t)
	run(t, b, "add John 380501234567")

	r := b.Execute("phones John")
	assert.Equal(t, ToneWarning, r.Tone)
	require.NotNil(t, r.Table)
	assert.Equal(t, []string{"Name", "Phone"}, r.Table.Headers)
	assert.Equal(t, [][]string{{"John", "380501234567"}}, r.Table.Rows)

	r = b.Execute("phones Ghost")
	assert.Equal(t, `Contact "Ghost" does not exist.`, r.Text)

	r = b.Execute("change-phone John 000000000000 380509999999")
	assert.Equal(t, `Phone "000000000000" does not exist.`, r.Text)

	r = b.Execute("change-phone John 380501234567 380509999999")
	assert.Equal(t, "Contact updated.", r.Text)
	assert.True(t, r.Mutated)

	r = b.Execute("change-phone John 380509999999 12")
	assert.Equal(t, ToneError, r.Tone)

	r = b.Execute("remove-phone John 380509999999")
	assert.Equal(t, "Phone removed.", r.Text)

	r = b.Execute("phones John")
	assert.Equal(t, `The contact "John" has no phones.`, r.Text)
	assert.Nil(t, r.Table)
}

func TestEmails(t *testing.T) {
	b := newTestBot(t)
	run(t, b, "add John")

	r := b.Execute("emails John")
	assert.Equal(t, `The contact "John" has no emails.`, r.Text)

	r = b.Execute("add-email John not-an-email")
	assert.Equal(t, ToneError, r.Tone)
	assert.True(t, strings.HasPrefix(r.Text, "Invalid email.\n"))

	run(t, b, "add-email John john@example.com")

	r = b.Execute("change-email John nobody@example.com x@example.com")
	assert.Equal(t, `Email "nobody@example.com" does not exist.`, r.Text)

	run(t, b, "change-email John john@example.com j@example.org")

	r = b.Execute("emails John")
	require.NotNil(t, r.Table)
	assert.Equal(t, [][]string{{"John", "j@example.org"}}, r.Table.Rows)

	run(t, b, "remove-email John j@example.org")
	r = b.Execute("remove-email John j@example.org")
	assert.Equal(t, `Email "j@example.org" does not exist.`, r.Text)
}

func TestBirthdayCommands(t *testing.T) {
	b := newTestBot(t)
	run(t, b, "add John", "add Jane")

	r := b.Execute("show-birthday John")
	assert.Equal(t, "Contact date of birth is not specified.", r.Text)

	r = b.Execute("add-birthday John 31-12-1990")
	assert.Equal(t, ToneError, r.Tone)
	assert.Contains(t, r.Text, "invalid date format, use DD.MM.YYYY")

	r = b.Execute("add-birthday John 01.01.2099")
	assert.Equal(t, ToneError, r.Tone)

	r = b.Execute("add-birthday John 15.03.1990")
	assert.Equal(t, Reply{Text: "Contact birthday added.", Tone: ToneSuccess, Mutated: true}, r)

	r = b.Execute("show-birthday John")
	assert.Equal(t, "15.03.1990", r.Text)

	run(t, b, "add-birthday Jane 30.03.1985")

	r = b.Execute("birthdays")
	require.NotNil(t, r.Table)
	assert.Equal(t, []string{"Name", "Congratulation date"}, r.Table.Headers)
	assert.Equal(t, [][]string{{"John", "15.03.2024"}}, r.Table.Rows)

	r = b.Execute("birthdays 30")
	require.NotNil(t, r.Table)
	assert.Len(t, r.Table.Rows, 2)

	r = b.Execute("birthdays 1")
	assert.Equal(t, "No upcoming birthdays.", r.Text)

	r = b.Execute("birthdays -2")
	assert.Equal(t, ToneError, r.Tone)
	assert.True(t, strings.HasPrefix(r.Text, "Number of days must be a non-negative integer.\n"))
}

func TestBirthdays_WindowBounds(t *testing.T) {
	b := newTestBot(t)
	run(t, b,
		"add Today", "add-birthday Today 13.03.1990",
		"add Edge", "add-birthday Edge 20.03.1980",
		"add Later", "add-birthday Later 21.03.1980")

	r := b.Execute("birthdays 0")
	require.NotNil(t, r.Table)
	assert.Equal(t, [][]string{{"Today", "13.03.2024"}}, r.Table.Rows)

	r = b.Execute("birthdays 6")
	require.NotNil(t, r.Table)
	assert.Equal(t, [][]string{{"Today", "13.03.2024"}}, r.Table.Rows)

	r = b.Execute("birthdays 7")
	require.NotNil(t, r.Table)
	assert.Equal(t, [][]string{{"Today", "13.03.2024"}, {"Edge", "20.03.2024"}}, r.Table.Rows)
}

func TestAddBirthday_SingleDigitParts(t *testing.T) {
	b := newTestBot(t)
	run(t, b, "add John", "add-birthday John 1.3.1990")

	r := b.Execute("show-birthday John")
	assert.Equal(t, "01.03.1990", r.Text)
}

func TestBirthdays_WeekendShift(t *testing.T) {
	// 16.03.2024 is a Saturday.
	b := newTestBot(t, WithWeekendShift(true), WithBirthdayWindow(5))
	run(t, b, "add John", "add-birthday John 16.03.1990")

	r := b.Execute("birthdays")
	require.NotNil(t, r.Table)
	assert.Equal(t, [][]string{{"John", "18.03.2024"}}, r.Table.Rows)
}

func TestAllAndSearch(t *testing.T) {
	b := newTestBot(t)

	assert.Equal(t, "Address book is empty.", b.Execute("all").Text)

	run(t, b,
		"add John 380501234567",
		"add-email John john@example.com",
		"set-address John 12 Baker Street, London",
		"add Jane",
	)

	r := b.Execute("all")
	require.NotNil(t, r.Table)
	want := [][]string{
		{"John", "380501234567", "john@example.com", "-", "12 Baker Street, London"},
		{"Jane", "-", "-", "-", "-"},
	}
	if diff := cmp.Diff(want, r.Table.Rows); diff != "" {
		t.Errorf("all rows mismatch (-want +got):\n%s", diff)
	}

	r = b.Execute("search baker")
	require.NotNil(t, r.Table)
	assert.Len(t, r.Table.Rows, 1)
	assert.Equal(t, "John", r.Table.Rows[0][0])

	r = b.Execute("search nobody")
	assert.Equal(t, `No contacts found for "nobody".`, r.Text)

	r = b.Execute("delete Jane")
	assert.Equal(t, "Contact deleted.", r.Text)
	r = b.Execute("delete Jane")
	assert.Equal(t, `Contact "Jane" does not exist.`, r.Text)
	assert.False(t, r.Mutated)
}

// =============================================================================
// NOTES
// =============================================================================

func TestNotes(t *testing.T) {
	b := newTestBot(t)

	assert.Equal(t, "No notes available.", b.Execute("show-notes").Text)

	run(t, b,
		"add-note buy milk",
		"add-note call Mom tomorrow",
		"add-tag 1 shopping",
		"add-tag 2 family",
		"add-tag 2 Urgent",
	)

	r := b.Execute("show-notes")
	require.NotNil(t, r.Table)
	assert.Equal(t, noteHeaders, r.Table.Headers)
	assert.Equal(t, [][]string{
		{"1", "shopping", "buy milk"},
		{"2", "family, urgent", "call Mom tomorrow"},
	}, r.Table.Rows)

	r = b.Execute("find-note MOM")
	require.NotNil(t, r.Table)
	assert.Equal(t, "2", r.Table.Rows[0][0])

	r = b.Execute("find-note bread")
	assert.Equal(t, `No notes found for "bread".`, r.Text)

	r = b.Execute("find-tag shopping")
	require.NotNil(t, r.Table)
	assert.Equal(t, [][]string{{"1", "shopping", "buy milk"}}, r.Table.Rows)

	r = b.Execute("sort-notes desc")
	require.NotNil(t, r.Table)
	assert.Equal(t, "1", r.Table.Rows[0][0])

	r = b.Execute("sort-notes")
	assert.Equal(t, "2", r.Table.Rows[0][0])

	run(t, b, "edit-note 1 buy oat milk")
	n, err := b.notebook.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", n.Text)
	assert.Equal(t, fixedNow, n.CreatedAt)

	r = b.Execute("delete-tag 1 nothing")
	assert.Equal(t, `Tag "nothing" does not exist.`, r.Text)
	run(t, b, "delete-tag 1 shopping")

	r = b.Execute("delete-note 9")
	assert.Equal(t, ToneError, r.Tone)
	assert.True(t, strings.HasPrefix(r.Text, "Note not found.\n"), r.Text)

	r = b.Execute("delete-note one")
	assert.True(t, strings.HasPrefix(r.Text, "Invalid note number.\n"), r.Text)

	run(t, b, "delete-note 1")
	assert.Equal(t, 1, b.notebook.Len())
}

func TestUnmappedErrorUsesDefaultMessage(t *testing.T) {
	r := inputError(CmdAll, assert.AnError)
	assert.Equal(t, DefaultErrorMessage+"\n"+assert.AnError.Error(), r.Text)
	assert.Equal(t, ToneError, r.Tone)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestReplaceAndView(t *testing.T) {
	b := newTestBot(t)
	run(t, b, "add John")

	book := contacts.NewAddressBook()
	rec, err := contacts.NewRecord("Alice")
	require.NoError(t, err)
	book.Add(rec)
	b.Replace(book, notes.NewNotebook())

	var names []string
	require.NoError(t, b.View(func(book *contacts.AddressBook, _ *notes.Notebook) error {
		for _, r := range book.Records() {
			names = append(names, r.Name)
		}
		return nil
	}))
	assert.Equal(t, []string{"Alice"}, names)

	run(t, b, "add-note stamped")
	n, err := b.notebook.Get(1)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, n.CreatedAt)
}

func TestConcurrentExecute(t *testing.T) {
	b := newTestBot(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Execute("add-note concurrent")
			_ = b.View(func(*contacts.AddressBook, *notes.Notebook) error { return nil })
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, b.notebook.Len())
}
