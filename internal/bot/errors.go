package bot

import (
	"errors"
	"fmt"

	"assistbot/internal/contacts"
	"assistbot/internal/notes"
)

var (
	ErrMissingArgs = errors.New("not enough arguments")
	ErrInvalidArgs = errors.New("invalid argument")
)

// DefaultErrorMessage is shown when no command-specific hint applies.
const DefaultErrorMessage = "An error occurred. Please check your input and try again."

type errKind int

const (
	kindOther errKind = iota
	kindMissing
	kindInvalid
	kindNotFound
)

var errorHints = map[errKind]map[Command]string{
	kindMissing: {
		CmdAdd:          "Give me name and phone please.",
		CmdDelete:       "Enter user name",
		CmdChangePhone:  "Give me name, old phone and new phone please.",
		CmdRemovePhone:  "Give me name and phone please.",
		CmdPhones:       "Enter user name",
		CmdAddEmail:     "Give me name and email please.",
		CmdEmails:       "Enter user name",
		CmdChangeEmail:  "Give me name, old email and new email please.",
		CmdRemoveEmail:  "Give me name and email please.",
		CmdSetAddress:   "Give me name and address please.",
		CmdAddBirthday:  "Give me name and birthday please.",
		CmdShowBirthday: "Enter user name",
		CmdSearch:       "Give me something to search for.",
		CmdAddNote:      "Give me the note text please.",
		CmdEditNote:     "Give me note number and text please.",
		CmdDeleteNote:   "Give me note number please.",
		CmdFindNote:     "Give me something to search for.",
		CmdAddTag:       "Give me note number and tag please.",
		CmdDeleteTag:    "Give me note number and tag please.",
		CmdFindTag:      "Give me a tag please.",
	},
	kindInvalid: {
		CmdAdd:         "Invalid phone number.",
		CmdChangePhone: "Invalid phone number.",
		CmdAddEmail:    "Invalid email.",
		CmdChangeEmail: "Invalid email.",
		CmdAddBirthday: "Invalid birthday.",
		CmdBirthdays:   "Number of days must be a non-negative integer.",
		CmdAddNote:     "Invalid note.",
		CmdEditNote:    "Invalid note.",
		CmdDeleteNote:  "Invalid note number.",
		CmdAddTag:      "Invalid tag.",
		CmdDeleteTag:   "Invalid tag.",
		CmdFindTag:     "Invalid tag.",
		CmdSortNotes:   "Sort order must be asc or desc.",
	},
	kindNotFound: {
		CmdEditNote:   "Note not found.",
		CmdDeleteNote: "Note not found.",
		CmdAddTag:     "Note not found.",
		CmdDeleteTag:  "Note not found.",
	},
}

func classify(err error) errKind {
	switch {
	case errors.Is(err, ErrMissingArgs):
		return kindMissing
	case errors.Is(err, ErrInvalidArgs),
		errors.Is(err, contacts.ErrEmptyName),
		errors.Is(err, contacts.ErrInvalidPhone),
		errors.Is(err, contacts.ErrInvalidEmail),
		errors.Is(err, contacts.ErrInvalidBirthday),
		errors.Is(err, contacts.ErrFutureBirthday),
		errors.Is(err, notes.ErrEmptyNote),
		errors.Is(err, notes.ErrInvalidTag):
		return kindInvalid
	case errors.Is(err, notes.ErrNoteNotFound),
		errors.Is(err, contacts.ErrPhoneNotFound),
		errors.Is(err, contacts.ErrEmailNotFound):
		return kindNotFound
	}
	return kindOther
}

// inputError turns a handler error into a user-facing error reply: a hint
// for the command and error kind, then the error detail on its own line.
func inputError(cmd Command, err error) Reply {
	hint, ok := errorHints[classify(err)][cmd]
	if !ok {
		hint = DefaultErrorMessage
	}
	return Reply{Text: hint + "\n" + err.Error(), Tone: ToneError}
}

func missingArgs(cmd Command) error {
	return fmt.Errorf("%w, usage: %s", ErrMissingArgs, Usage(cmd))
}
