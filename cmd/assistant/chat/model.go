// Package chat implements the interactive REPL: a bubbletea model for
// terminals and a plain line loop for pipes.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assistbot/cmd/assistant/ui"
	"assistbot/internal/bot"
	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// saveTimeout bounds a single persistence call.
const saveTimeout = 10 * time.Second

const reloadedNotice = "Data changed in another session and was reloaded."

// Persister loads and saves the bot's data. *store.Store implements it.
type Persister interface {
	Load(ctx context.Context) (*contacts.AddressBook, *notes.Notebook, error)
	Save(ctx context.Context, book *contacts.AddressBook, nb *notes.Notebook) error
}

// Options configures the REPL.
type Options struct {
	Prompt    string
	Styles    ui.Styles
	Persister Persister       // nil disables persistence
	Changes   <-chan struct{} // external change notifications, may be nil
}

// Message is one exchange in the history.
type Message struct {
	Input string
	Reply bot.Reply
	Time  time.Time
}

type (
	savedMsg struct {
		line      string
		reply     bot.Reply // reply of the re-run when reapplied
		reapplied bool
		err       error
	}
	externalChangeMsg struct{}
	reloadedMsg       struct {
		book *contacts.AddressBook
		nb   *notes.Notebook
		err  error
	}
)

// Model is the bubbletea model of the interactive REPL.
type Model struct {
	bot       *bot.Bot
	opts      Options
	styles    ui.Styles
	textinput textinput.Model
	viewport  viewport.Model
	renderer  *glamour.TermRenderer
	history   []Message
	width     int
	ready     bool
	quitting  bool
	lastErr   error
}

// NewModel creates the REPL model around b.
func NewModel(b *bot.Bot, opts Options) Model {
	if opts.Prompt == "" {
		opts.Prompt = "Enter a command: "
	}

	ti := textinput.New()
	ti.Prompt = opts.Prompt
	ti.PromptStyle = opts.Styles.Prompt
	ti.ShowSuggestions = true
	ti.SetSuggestions(bot.AllCommands())
	ti.Focus()

	return Model{
		bot:       b,
		opts:      opts,
		styles:    opts.Styles,
		textinput: ti,
		history: []Message{{
			Reply: bot.Reply{Text: bot.Greeting, Tone: bot.ToneInfo},
			Time:  time.Now(),
		}},
	}
}

// History returns the exchanges so far.
func (m Model) History() []Message { return m.history }

// Err returns the last persistence error, if any.
func (m Model) Err() error { return m.lastErr }

// Init starts the cursor blink and the change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		inputHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.textinput.Width = msg.Width - lipgloss.Width(m.textinput.Prompt) - 1
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(msg.Width-4, 20)),
		)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()
		case tea.KeyEnter:
			return m.submit()
		}

	case savedMsg:
		if msg.reapplied {
			m.appendSystem(bot.ToneInfo, reappliedNotice)
			m.history = append(m.history, Message{Input: msg.line, Reply: msg.reply, Time: time.Now()})
			m.refresh()
		}
		if msg.err != nil {
			m.lastErr = msg.err
			m.appendSystem(bot.ToneError, fmt.Sprintf("Failed to save: %v", msg.err))
		}
		return m, nil

	case externalChangeMsg:
		return m, m.reload()

	case reloadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.appendSystem(bot.ToneError, fmt.Sprintf("Failed to reload: %v", msg.err))
		} else {
			m.bot.Replace(msg.book, msg.nb)
			m.appendSystem(bot.ToneInfo, reloadedNotice)
		}
		return m, m.waitForChange()
	}

	var tiCmd, vpCmd tea.Cmd
	m.textinput, tiCmd = m.textinput.Update(msg)
	m.firstWordSuggestions()
	// Printable keys belong to the input, not viewport scrolling.
	if key, isKey := msg.(tea.KeyMsg); m.ready && (!isKey || (key.Type != tea.KeyRunes && key.Type != tea.KeySpace)) {
		m.viewport, vpCmd = m.viewport.Update(msg)
	}
	return m, tea.Batch(tiCmd, vpCmd)
}

// submit runs the current input line.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.textinput.Value()
	m.textinput.Reset()
	m.firstWordSuggestions()
	if strings.TrimSpace(line) == "" {
		return m, nil
	}

	reply := m.bot.Execute(line)
	m.history = append(m.history, Message{Input: line, Reply: reply, Time: time.Now()})
	m.refresh()

	switch {
	case reply.Quit:
		m.quitting = true
		return m, tea.Sequence(m.save(""), tea.Quit)
	case reply.Mutated:
		return m, m.save(line)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.history = append(m.history, Message{Reply: bot.Reply{Text: "Good bye!", Tone: bot.ToneInfo}, Time: time.Now()})
	return m, tea.Sequence(m.save(""), tea.Quit)
}

// firstWordSuggestions completes command names only while the first word
// is being typed.
func (m *Model) firstWordSuggestions() {
	if strings.Contains(strings.TrimLeft(m.textinput.Value(), " "), " ") {
		m.textinput.SetSuggestions(nil)
		return
	}
	m.textinput.SetSuggestions(bot.AllCommands())
}

func (m *Model) appendSystem(tone bot.Tone, text string) {
	m.history = append(m.history, Message{Reply: bot.Reply{Text: text, Tone: tone}, Time: time.Now()})
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// save persists the current data in the background. line is the command
// that caused the save, re-run by Commit on a conflict.
func (m Model) save(line string) tea.Cmd {
	p := m.opts.Persister
	if p == nil {
		return nil
	}
	b := m.bot
	return func() tea.Msg {
		timer := logging.StartTimer(logging.CategoryUI, "save")
		defer timer.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		reply, reapplied, err := Commit(ctx, b, p, line)
		if !reapplied {
			return savedMsg{err: err}
		}
		return savedMsg{line: line, reply: reply, reapplied: true, err: err}
	}
}

func (m Model) reload() tea.Cmd {
	p := m.opts.Persister
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		book, nb, err := p.Load(ctx)
		return reloadedMsg{book: book, nb: nb, err: err}
	}
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.opts.Changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		logging.UI("external change received")
		return externalChangeMsg{}
	}
}

// View renders the model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.quitting {
		return m.renderHistory() + "\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.styles.RenderDivider(max(m.width, 1)),
		m.textinput.View(),
	)
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for i, msg := range m.history {
		if i > 0 {
			sb.WriteString("\n")
		}
		if msg.Input != "" {
			sb.WriteString(m.styles.Prompt.Render(m.opts.Prompt))
			sb.WriteString(m.styles.UserInput.Render(msg.Input))
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderReply(msg.Reply))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderReply(r bot.Reply) string {
	if r.Help {
		return m.safeRenderMarkdown(bot.MenuMarkdown(), r)
	}
	return m.styles.RenderReply(r)
}

// safeRenderMarkdown renders with glamour, falling back to the plain reply.
func (m Model) safeRenderMarkdown(md string, fallback bot.Reply) (out string) {
	if m.renderer == nil {
		return m.styles.RenderReply(fallback)
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryUI).Error("markdown render panic: %v", r)
			out = m.styles.RenderReply(fallback)
		}
	}()
	rendered, err := m.renderer.Render(md)
	if err != nil {
		return m.styles.RenderReply(fallback)
	}
	return strings.Trim(rendered, "\n")
}

// Run starts the bubbletea program and blocks until the user quits.
func Run(ctx context.Context, b *bot.Bot, opts Options) error {
	logging.UI("starting interactive REPL")
	p := tea.NewProgram(NewModel(b, opts), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
