// Package bot implements the assistant's command set on top of an address
// book and a notebook. It knows nothing about terminals or storage: callers
// feed it input lines and render the returned Reply.
package bot

import (
	"sync"
	"time"

	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"
)

// Greeting is printed when the REPL starts.
const Greeting = "Welcome to the assistant bot!"

type handlerFunc func(b *Bot, args []string) (Reply, error)

// Bot dispatches commands against an address book and a notebook.
// Execute, Replace and View are safe for concurrent use.
type Bot struct {
	mu            sync.RWMutex
	book          *contacts.AddressBook
	notebook      *notes.Notebook
	now           func() time.Time
	window        int
	shiftWeekends bool
	handlers      map[Command]handlerFunc
}

// Option configures a Bot.
type Option func(*Bot)

// WithClock sets the time source used for "today" and note timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// WithBirthdayWindow sets the default number of days `birthdays` looks ahead.
func WithBirthdayWindow(days int) Option {
	return func(b *Bot) { b.window = days }
}

// WithWeekendShift moves weekend congratulations to the following Monday.
func WithWeekendShift(enabled bool) Option {
	return func(b *Bot) { b.shiftWeekends = enabled }
}

// New returns a bot over book and notebook. Nil values start empty.
func New(book *contacts.AddressBook, notebook *notes.Notebook, opts ...Option) *Bot {
	b := &Bot{
		now:    time.Now,
		window: contacts.DefaultBirthdayWindow,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setData(book, notebook)
	b.handlers = map[Command]handlerFunc{
		CmdHello:        (*Bot).hello,
		CmdHelp:         (*Bot).help,
		CmdAdd:          (*Bot).addContact,
		CmdDelete:       (*Bot).deleteContact,
		CmdChangePhone:  (*Bot).changePhone,
		CmdRemovePhone:  (*Bot).removePhone,
		CmdPhones:       (*Bot).showPhones,
		CmdAddEmail:     (*Bot).addEmail,
		CmdEmails:       (*Bot).showEmails,
		CmdChangeEmail:  (*Bot).changeEmail,
		CmdRemoveEmail:  (*Bot).removeEmail,
		CmdSetAddress:   (*Bot).setAddress,
		CmdAddBirthday:  (*Bot).addBirthday,
		CmdShowBirthday: (*Bot).showBirthday,
		CmdBirthdays:    (*Bot).showBirthdays,
		CmdSearch:       (*Bot).search,
		CmdAll:          (*Bot).showAll,
		CmdAddNote:      (*Bot).addNote,
		CmdShowNotes:    (*Bot).showNotes,
		CmdEditNote:     (*Bot).editNote,
		CmdDeleteNote:   (*Bot).deleteNote,
		CmdFindNote:     (*Bot).findNote,
		CmdAddTag:       (*Bot).addTag,
		CmdDeleteTag:    (*Bot).deleteTag,
		CmdFindTag:      (*Bot).findTag,
		CmdSortNotes:    (*Bot).sortNotes,
		CmdExit:         (*Bot).exit,
		CmdClose:        (*Bot).exit,
	}
	return b
}

func (b *Bot) setData(book *contacts.AddressBook, notebook *notes.Notebook) {
	if book == nil {
		book = contacts.NewAddressBook()
	}
	if notebook == nil {
		notebook = notes.NewNotebook()
	}
	notebook.SetClock(b.now)
	b.book = book
	b.notebook = notebook
}

// Execute runs one input line. Blank input yields a zero Reply.
func (b *Bot) Execute(line string) Reply {
	cmd, args, ok := ParseInput(line)
	if cmd == "" {
		return Reply{}
	}
	if !ok {
		logging.CommandsDebug("unknown command %q", cmd)
		return text(ToneError, "Invalid command.")
	}

	handler := b.handlers[cmd]

	b.mu.Lock()
	defer b.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryCommands, string(cmd))
	reply, err := handler(b, args)
	timer.Stop()
	if err != nil {
		logging.Get(logging.CategoryCommands).Warn("%s failed: %v", cmd, err)
		return inputError(cmd, err)
	}
	if reply.Mutated {
		logging.Commands("%s changed data (contacts=%d, notes=%d)", cmd, b.book.Len(), b.notebook.Len())
	}
	return reply
}

// Replace swaps in freshly loaded data, for example after another process
// changed the database.
func (b *Bot) Replace(book *contacts.AddressBook, notebook *notes.Notebook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setData(book, notebook)
}

// View calls fn with the current data under a read lock. fn must not keep
// references past its return or modify the data.
func (b *Bot) View(fn func(*contacts.AddressBook, *notes.Notebook) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(b.book, b.notebook)
}

// Update calls fn with the current data under the write lock.
func (b *Bot) Update(fn func(*contacts.AddressBook, *notes.Notebook) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.book, b.notebook)
}

func (b *Bot) today() time.Time {
	return b.now()
}

func (b *Bot) hello([]string) (Reply, error) {
	return text(ToneInfo, "How can I help you?"), nil
}

func (b *Bot) help([]string) (Reply, error) {
	return Reply{Text: MenuText(), Tone: ToneInfo, Help: true}, nil
}

func (b *Bot) exit([]string) (Reply, error) {
	return Reply{Text: "Good bye!", Tone: ToneInfo, Quit: true}, nil
}
