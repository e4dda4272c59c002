package chat

import (
	"context"
	"errors"

	"assistbot/internal/bot"
	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"
	"assistbot/internal/store"
)

// maxReapply bounds how often one command is re-run after losing a race
// with another writer.
const maxReapply = 3

// Commit saves b's data through p. When another process wrote to the
// database since the last load, Save reports store.ErrConflict: the fresh
// data replaces b's and line is executed again on it before retrying.
// An empty line (the save on exit) only reloads.
//
// reapplied reports whether line was re-run; reply is then the reply of the
// last run.
func Commit(ctx context.Context, b *bot.Bot, p Persister, line string) (reply bot.Reply, reapplied bool, err error) {
	if p == nil {
		return reply, false, nil
	}
	for attempt := 0; ; attempt++ {
		err = b.View(func(book *contacts.AddressBook, nb *notes.Notebook) error {
			return p.Save(ctx, book, nb)
		})
		if !errors.Is(err, store.ErrConflict) || attempt == maxReapply {
			return reply, reapplied, err
		}

		book, nb, loadErr := p.Load(ctx)
		if loadErr != nil {
			return reply, reapplied, loadErr
		}
		b.Replace(book, nb)
		logging.UI("save conflict: reloaded data (attempt %d)", attempt+1)
		if line == "" {
			return reply, reapplied, nil
		}

		reply = b.Execute(line)
		reapplied = true
		if !reply.Mutated {
			return reply, reapplied, nil
		}
	}
}

// reappliedNotice explains a reply produced by Commit's re-run.
const reappliedNotice = "Data changed in another session. Reloaded and ran the command again."
