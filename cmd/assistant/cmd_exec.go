package main

import (
	"errors"
	"fmt"
	"strings"

	"assistbot/cmd/assistant/chat"
	"assistbot/internal/bot"

	"github.com/spf13/cobra"
)

// errCommandFailed marks an exec whose reply was an error.
var errCommandFailed = errors.New("command failed")

// execCmd runs a single bot command
var execCmd = &cobra.Command{
	Use:   "exec [command] [args...]",
	Short: "Run one bot command and exit",
	Long: `Runs a single REPL command against the database and prints the reply.
Changes are saved before exiting.

Examples:
  assistant exec add John 380501234567
  assistant exec birthdays 14
  assistant exec find-tag work`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	// Flags end at the bot command: `exec add-note -v fix` and
	// `exec birthdays -1` reach the bot unchanged.
	execCmd.Flags().SetInterspersed(false)
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	line := strings.Join(args, " ")
	reply := s.bot.Execute(line)
	if reply.Mutated {
		again, reapplied, err := chat.Commit(ctx, s.bot, s.store, line)
		if err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}
		if reapplied {
			logger.Info("database changed by another process, command re-run on fresh data")
			reply = again
		}
	}

	if out := s.styles().RenderReply(reply); out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	if reply.Tone == bot.ToneError {
		return errCommandFailed
	}
	return nil
}
