package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"assistbot/cmd/assistant/chat"
	"assistbot/cmd/assistant/ui"
	"assistbot/internal/bot"
	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"
	"assistbot/internal/store"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session bundles the opened store and a bot loaded from it.
type session struct {
	store *store.Store
	bot   *bot.Bot
}

// openSession opens the configured database and loads its data into a bot.
func openSession(ctx context.Context) (*session, error) {
	dbPath := cfg.Storage.DatabasePath(dataDir)
	st, err := store.Open(dbPath, cfg.Storage.Driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	book, nb, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	logger.Debug("store opened",
		zap.String("path", dbPath),
		zap.Int("contacts", book.Len()),
		zap.Int("notes", nb.Len()))

	b := bot.New(book, nb,
		bot.WithBirthdayWindow(cfg.Birthdays.WindowDays),
		bot.WithWeekendShift(cfg.Birthdays.ShiftWeekends),
	)
	return &session{store: st, bot: b}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// save persists the bot's current data.
func (s *session) save(ctx context.Context) error {
	return s.bot.View(func(book *contacts.AddressBook, nb *notes.Notebook) error {
		return s.store.Save(ctx, book, nb)
	})
}

func (s *session) styles() ui.Styles {
	return ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
}

// runREPL starts the interactive loop: bubbletea on a terminal, plain
// line mode otherwise.
func runREPL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := chat.Options{
		Prompt:    cfg.UI.Prompt,
		Styles:    s.styles(),
		Persister: s.store,
	}

	if cfg.Storage.Watch {
		w, err := store.NewWatcher(s.store.Path(), s.store, cfg.Storage.GetWatchDebounce())
		if err != nil {
			logger.Warn("change watcher unavailable", zap.Error(err))
		} else if err := w.Start(ctx); err != nil {
			logger.Warn("change watcher unavailable", zap.Error(err))
		} else {
			defer w.Stop()
			opts.Changes = w.Events()
		}
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && useTUI(f) {
		logging.Boot("starting interactive REPL")
		return chat.Run(ctx, s.bot, opts)
	}

	logging.Boot("starting plain REPL")
	err = chat.RunPlain(ctx, in, cmd.OutOrStdout(), s.bot, opts)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func useTUI(f *os.File) bool {
	if plainMode || cfg.UI.Plain {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
