package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistbot/cmd/assistant/ui"
	"assistbot/internal/bot"
	"assistbot/internal/contacts"
	"assistbot/internal/notes"
	"assistbot/internal/store"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// fakePersister keeps saves in memory.
type fakePersister struct {
	mu       sync.Mutex
	saves    int
	lastBook []string
	loadBook *contacts.AddressBook
	saveErr  error
}

func (f *fakePersister) Save(_ context.Context, book *contacts.AddressBook, _ *notes.Notebook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.lastBook = f.lastBook[:0]
	for _, r := range book.Records() {
		f.lastBook = append(f.lastBook, r.Name)
	}
	return nil
}

func (f *fakePersister) Load(context.Context) (*contacts.AddressBook, *notes.Notebook, error) {
	return f.loadBook, notes.NewNotebook(), nil
}

func (f *fakePersister) savedNames() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves, append([]string(nil), f.lastBook...)
}

func testOptions(p Persister) Options {
	return Options{Prompt: "> ", Styles: ui.NewStyles(ui.LightTheme()), Persister: p}
}

func bookWith(t *testing.T, names ...string) *contacts.AddressBook {
	t.Helper()
	book := contacts.NewAddressBook()
	for _, name := range names {
		r, err := contacts.NewRecord(name)
		require.NoError(t, err)
		book.Add(r)
	}
	return book
}

// =============================================================================
// PLAIN REPL
// =============================================================================

func TestRunPlain(t *testing.T) {
	p := &fakePersister{}
	b := bot.New(nil, nil)
	in := strings.NewReader("hello\nadd John 380501234567\nphones John\nbogus\nexit\nadd Never\n")
	var out bytes.Buffer

	require.NoError(t, RunPlain(context.Background(), in, &out, b, testOptions(p)))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "\nWelcome to the assistant bot!\n\n> "))
	assert.Contains(t, text, "How can I help you?")
	assert.Contains(t, text, "Contact added.")
	assert.Contains(t, text, "380501234567")
	assert.Contains(t, text, "Invalid command.")
	assert.Contains(t, text, "Good bye!")
	assert.NotContains(t, text, "Never")

	saves, names := p.savedNames()
	assert.Equal(t, 2, saves, "one save after add, one on exit")
	assert.Equal(t, []string{"John"}, names)
}

func TestRunPlain_EOFSaves(t *testing.T) {
	p := &fakePersister{}
	b := bot.New(nil, nil)
	var out bytes.Buffer

	require.NoError(t, RunPlain(context.Background(), strings.NewReader("add Jane"), &out, b, testOptions(p)))
	saves, names := p.savedNames()
	assert.Equal(t, 2, saves)
	assert.Equal(t, []string{"Jane"}, names)
}

func TestRunPlain_SaveError(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("disk full")}
	var out bytes.Buffer

	err := RunPlain(context.Background(), strings.NewReader("add Jane\nclose\n"), &out, bot.New(nil, nil), testOptions(p))
	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, out.String(), "Failed to save: disk full")
}

func TestRunPlain_ReloadsOnExternalChange(t *testing.T) {
	p := &fakePersister{loadBook: bookWith(t, "Remote")}
	changes := make(chan struct{}, 1)
	changes <- struct{}{}
	opts := testOptions(p)
	opts.Changes = changes

	b := bot.New(bookWith(t, "Local"), nil)
	var out bytes.Buffer
	require.NoError(t, RunPlain(context.Background(), strings.NewReader("all\nexit\n"), &out, b, opts))

	assert.Contains(t, out.String(), "Remote")
	assert.NotContains(t, out.String(), "Local")
}

func TestRunPlain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakePersister{}

	err := RunPlain(ctx, strings.NewReader("add X\n"), &bytes.Buffer{}, bot.New(nil, nil), testOptions(p))
	assert.ErrorIs(t, err, context.Canceled)
	saves, _ := p.savedNames()
	assert.Equal(t, 1, saves)
}

func openTestStore(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path, store.DriverModernc)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func saveNames(t *testing.T, s *store.Store, names ...string) {
	t.Helper()
	_, _, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), bookWith(t, names...), notes.NewNotebook()))
}

func storedNames(t *testing.T, path string) []string {
	t.Helper()
	book, _, err := openTestStore(t, path).Load(context.Background())
	require.NoError(t, err)
	var names []string
	for _, r := range book.Records() {
		names = append(names, r.Name)
	}
	return names
}

func TestRunPlain_ExternalWriteWhileWaitingForInput(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assistant.db")
	local := openTestStore(t, path)
	remote := openTestStore(t, path)

	book, nb, err := local.Load(ctx)
	require.NoError(t, err)
	b := bot.New(book, nb)

	changes := make(chan struct{}, 1)
	opts := testOptions(local)
	opts.Changes = changes

	in, feed := io.Pipe()
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- RunPlain(ctx, in, &out, b, opts) }()

	// The write returns once the REPL has read the line, so afterwards it
	// is back at the prompt.
	_, err = io.WriteString(feed, "hello\n")
	require.NoError(t, err)

	saveNames(t, remote, "External")
	changes <- struct{}{}

	_, err = io.WriteString(feed, "add Local 380501234567\nexit\n")
	require.NoError(t, err)
	require.NoError(t, feed.Close())
	require.NoError(t, <-done)

	assert.Equal(t, []string{"External", "Local"}, storedNames(t, path))
	assert.Contains(t, out.String(), reloadedNotice)
	assert.NotContains(t, out.String(), reappliedNotice)
}

func TestCommit_ReappliesAfterConflict(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assistant.db")
	local := openTestStore(t, path)
	remote := openTestStore(t, path)

	book, nb, err := local.Load(ctx)
	require.NoError(t, err)
	b := bot.New(book, nb)

	// No change notification: the write lands inside the watcher debounce.
	saveNames(t, remote, "External")

	line := "add Local 380501234567"
	require.True(t, b.Execute(line).Mutated)
	reply, reapplied, err := Commit(ctx, b, local, line)
	require.NoError(t, err)
	assert.True(t, reapplied)
	assert.Equal(t, "Contact added.", reply.Text)
	assert.Equal(t, []string{"External", "Local"}, storedNames(t, path))

	// The exit save after a conflict keeps the other session's data.
	saveNames(t, remote, "Other")
	_, reapplied, err = Commit(ctx, b, local, "")
	require.NoError(t, err)
	assert.False(t, reapplied)
	assert.Equal(t, []string{"Other"}, storedNames(t, path))
}

func TestCommit_NilPersister(t *testing.T) {
	_, reapplied, err := Commit(context.Background(), bot.New(nil, nil), nil, "add X")
	assert.NoError(t, err)
	assert.False(t, reapplied)
}

// =============================================================================
// BUBBLETEA MODEL
// =============================================================================

func typeText(m tea.Model, s string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func suggestions(m tea.Model) []string {
	ti := m.(Model).textinput
	return ti.AvailableSuggestions()
}

func newSizedModel(t *testing.T, b *bot.Bot, opts Options) tea.Model {
	t.Helper()
	var m tea.Model = NewModel(b, opts)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestModel_SubmitMutatingCommandSaves(t *testing.T) {
	p := &fakePersister{}
	b := bot.New(nil, nil)
	m := newSizedModel(t, b, testOptions(p))

	m = typeText(m, "add John 380501234567")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, savedMsg{}, msg)
	saves, names := p.savedNames()
	assert.Equal(t, 1, saves)
	assert.Equal(t, []string{"John"}, names)

	model := m.(Model)
	require.Len(t, model.History(), 2)
	assert.Equal(t, "add John 380501234567", model.History()[1].Input)
	assert.Equal(t, "Contact added.", model.History()[1].Reply.Text)
	assert.Empty(t, model.textinput.Value())
	assert.Contains(t, model.View(), "Contact added.")
}

func TestModel_QueryDoesNotSave(t *testing.T) {
	p := &fakePersister{}
	m := newSizedModel(t, bot.New(nil, nil), testOptions(p))

	m = typeText(m, "all")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	saves, _ := p.savedNames()
	assert.Zero(t, saves)
}

func TestModel_BlankInputIgnored(t *testing.T) {
	m := newSizedModel(t, bot.New(nil, nil), testOptions(nil))
	m = typeText(m, "   ")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.(Model).History(), 1)
}

func TestModel_Exit(t *testing.T) {
	m := newSizedModel(t, bot.New(nil, nil), testOptions(&fakePersister{}))
	m = typeText(m, "exit")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.(Model).quitting)
	assert.Contains(t, m.View(), "Good bye!")

	m2 := newSizedModel(t, bot.New(nil, nil), testOptions(nil))
	m2, cmd = m2.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m2.(Model).quitting)
}

func TestModel_FirstWordSuggestions(t *testing.T) {
	m := newSizedModel(t, bot.New(nil, nil), testOptions(nil))
	assert.NotEmpty(t, suggestions(m))

	m = typeText(m, "add ")
	assert.Empty(t, suggestions(m))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotEmpty(t, suggestions(m))
}

func TestModel_Help(t *testing.T) {
	m := newSizedModel(t, bot.New(nil, nil), testOptions(nil))
	m = typeText(m, "help")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "sort-notes")
}

func TestModel_ExternalReload(t *testing.T) {
	p := &fakePersister{loadBook: bookWith(t, "Remote")}
	changes := make(chan struct{}, 1)
	opts := testOptions(p)
	opts.Changes = changes
	b := bot.New(bookWith(t, "Local"), nil)
	m := newSizedModel(t, b, opts)

	changes <- struct{}{}
	wait := m.(Model).waitForChange()
	require.NotNil(t, wait)
	assert.Equal(t, externalChangeMsg{}, wait())

	m, cmd := m.Update(externalChangeMsg{})
	require.NotNil(t, cmd)
	m, next := m.Update(cmd())
	assert.NotNil(t, next, "listener is re-armed")

	var names []string
	require.NoError(t, b.View(func(book *contacts.AddressBook, _ *notes.Notebook) error {
		for _, r := range book.Records() {
			names = append(names, r.Name)
		}
		return nil
	}))
	assert.Equal(t, []string{"Remote"}, names)
	assert.Contains(t, m.View(), "reloaded")
}

func TestModel_SaveErrorShown(t *testing.T) {
	m := newSizedModel(t, bot.New(nil, nil), testOptions(nil))
	m, _ = m.Update(savedMsg{err: errors.New("locked")})
	assert.ErrorContains(t, m.(Model).Err(), "locked")
	assert.Contains(t, m.View(), "Failed to save: locked")
}

func TestModel_ReappliedReplyShown(t *testing.T) {
	m := newSizedModel(t, bot.New(nil, nil), testOptions(nil))
	m, _ = m.Update(savedMsg{
		line:      "add Local",
		reply:     bot.Reply{Text: "Contact updated.", Tone: bot.ToneSuccess, Mutated: true},
		reapplied: true,
	})
	history := m.(Model).History()
	require.Len(t, history, 3)
	assert.Equal(t, reappliedNotice, history[1].Reply.Text)
	assert.Equal(t, "Contact updated.", history[2].Reply.Text)
	assert.Contains(t, m.View(), "Contact updated.")
}
