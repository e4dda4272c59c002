package bot

import (
	"fmt"
	"strconv"
	"strings"

	"assistbot/internal/notes"
)

var noteHeaders = []string{"#", "Tags", "Note"}

func noteTable(entries []notes.Entry) Reply {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{strconv.Itoa(e.Pos), orDash(e.Tags), e.Text})
	}
	return table(noteHeaders, rows)
}

func parsePos(value string) (int, error) {
	pos, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: note number %q", ErrInvalidArgs, value)
	}
	return pos, nil
}

func (b *Bot) addNote(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdAddNote)
	}
	if _, err := b.notebook.Add(strings.Join(args, " ")); err != nil {
		return Reply{}, err
	}
	return mutated("Note added."), nil
}

func (b *Bot) showNotes([]string) (Reply, error) {
	if b.notebook.Len() == 0 {
		return text(ToneWarning, "No notes available."), nil
	}
	return noteTable(b.notebook.List()), nil
}

func (b *Bot) editNote(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdEditNote)
	}
	pos, err := parsePos(args[0])
	if err != nil {
		return Reply{}, err
	}
	if err := b.notebook.Edit(pos, strings.Join(args[1:], " ")); err != nil {
		return Reply{}, err
	}
	return mutated("Note updated."), nil
}

func (b *Bot) deleteNote(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdDeleteNote)
	}
	pos, err := parsePos(args[0])
	if err != nil {
		return Reply{}, err
	}
	if err := b.notebook.Delete(pos); err != nil {
		return Reply{}, err
	}
	return mutated("Note deleted."), nil
}

func (b *Bot) findNote(args []string) (Reply, error) {
	query := strings.Join(args, " ")
	if query == "" {
		return Reply{}, missingArgs(CmdFindNote)
	}
	found := b.notebook.Find(query)
	if len(found) == 0 {
		return text(ToneWarning, fmt.Sprintf("No notes found for %q.", query)), nil
	}
	return noteTable(found), nil
}

func (b *Bot) addTag(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdAddTag)
	}
	pos, err := parsePos(args[0])
	if err != nil {
		return Reply{}, err
	}
	if err := b.notebook.AddTag(pos, args[1]); err != nil {
		return Reply{}, err
	}
	return mutated("Tag added."), nil
}

func (b *Bot) deleteTag(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdDeleteTag)
	}
	pos, err := parsePos(args[0])
	if err != nil {
		return Reply{}, err
	}
	removed, err := b.notebook.DeleteTag(pos, args[1])
	if err != nil {
		return Reply{}, err
	}
	if !removed {
		return text(ToneWarning, fmt.Sprintf("Tag %q does not exist.", args[1])), nil
	}
	return mutated("Tag deleted."), nil
}

func (b *Bot) findTag(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdFindTag)
	}
	found := b.notebook.FindByTag(args[0])
	if len(found) == 0 {
		return text(ToneWarning, fmt.Sprintf("No notes found for %q.", args[0])), nil
	}
	return noteTable(found), nil
}

func (b *Bot) sortNotes(args []string) (Reply, error) {
	reverse := false
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "asc":
		case "desc":
			reverse = true
		default:
			return Reply{}, fmt.Errorf("%w: sort order %q", ErrInvalidArgs, args[0])
		}
	}
	if b.notebook.Len() == 0 {
		return text(ToneWarning, "No notes available."), nil
	}
	return noteTable(b.notebook.SortByTag(reverse)), nil
}
