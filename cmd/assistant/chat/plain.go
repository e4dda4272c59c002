package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"assistbot/internal/bot"
	"assistbot/internal/logging"
)

// RunPlain is the line-mode REPL used when input is not a terminal or
// --plain is set. It returns at exit/close, EOF or context cancellation,
// saving the data on the way out.
func RunPlain(ctx context.Context, in io.Reader, out io.Writer, b *bot.Bot, opts Options) error {
	logging.UI("starting plain REPL")
	render := func(r bot.Reply) {
		if r.Text == "" && r.Table == nil {
			return
		}
		fmt.Fprintf(out, "\n%s\n\n", opts.Styles.RenderReply(r))
	}
	saveOnExit := func(cause error) error {
		if _, _, err := Commit(context.WithoutCancel(ctx), b, opts.Persister, ""); err != nil {
			return err
		}
		return cause
	}

	render(bot.Reply{Text: bot.Greeting, Tone: bot.ToneInfo})

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return saveOnExit(err)
		}

		fmt.Fprint(out, opts.Styles.Prompt.Render(opts.Prompt))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return saveOnExit(scanner.Err())
		}

		// Changes may have arrived while the prompt was waiting.
		if reloaded, err := drainChanges(ctx, b, opts); err != nil {
			render(bot.Reply{Text: fmt.Sprintf("Failed to reload: %v", err), Tone: bot.ToneError})
		} else if reloaded {
			render(bot.Reply{Text: reloadedNotice, Tone: bot.ToneInfo})
		}

		line := scanner.Text()
		reply := b.Execute(line)
		render(reply)
		if reply.Quit {
			return saveOnExit(nil)
		}
		if !reply.Mutated {
			continue
		}
		again, reapplied, err := Commit(ctx, b, opts.Persister, line)
		if reapplied {
			render(bot.Reply{Text: reappliedNotice, Tone: bot.ToneInfo})
			render(again)
		}
		if err != nil {
			render(bot.Reply{Text: fmt.Sprintf("Failed to save: %v", err), Tone: bot.ToneError})
		}
	}
}

// drainChanges reloads once if any external change is pending.
func drainChanges(ctx context.Context, b *bot.Bot, opts Options) (bool, error) {
	if opts.Changes == nil || opts.Persister == nil {
		return false, nil
	}
	pending := false
drain:
	for {
		select {
		case _, ok := <-opts.Changes:
			if !ok {
				break drain
			}
			pending = true
		default:
			break drain
		}
	}
	if !pending {
		return false, nil
	}
	book, nb, err := opts.Persister.Load(ctx)
	if err != nil {
		return false, err
	}
	b.Replace(book, nb)
	logging.UI("reloaded after external change")
	return true, nil
}
