package bot

import (
	"fmt"
	"strings"
)

// Command is a first word the bot understands.
type Command string

const (
	CmdHello        Command = "hello"
	CmdHelp         Command = "help"
	CmdAdd          Command = "add"
	CmdDelete       Command = "delete"
	CmdChangePhone  Command = "change-phone"
	CmdRemovePhone  Command = "remove-phone"
	CmdPhones       Command = "phones"
	CmdAddEmail     Command = "add-email"
	CmdEmails       Command = "emails"
	CmdChangeEmail  Command = "change-email"
	CmdRemoveEmail  Command = "remove-email"
	CmdSetAddress   Command = "set-address"
	CmdAddBirthday  Command = "add-birthday"
	CmdShowBirthday Command = "show-birthday"
	CmdBirthdays    Command = "birthdays"
	CmdSearch       Command = "search"
	CmdAll          Command = "all"
	CmdAddNote      Command = "add-note"
	CmdShowNotes    Command = "show-notes"
	CmdEditNote     Command = "edit-note"
	CmdDeleteNote   Command = "delete-note"
	CmdFindNote     Command = "find-note"
	CmdAddTag       Command = "add-tag"
	CmdDeleteTag    Command = "delete-tag"
	CmdFindTag      Command = "find-tag"
	CmdSortNotes    Command = "sort-notes"
	CmdExit         Command = "exit"
	CmdClose        Command = "close"
)

// commandSpec describes one command for help output and argument errors.
type commandSpec struct {
	cmd     Command
	args    string
	summary string
}

// commandTable is the canonical command order used by help and completion.
var commandTable = []commandSpec{
	{CmdHello, "", "greet the bot"},
	{CmdHelp, "", "show this menu"},
	{CmdAdd, "<name> [phone]", "create a contact or add a phone"},
	{CmdDelete, "<name>", "remove a contact from the address book"},
	{CmdChangePhone, "<name> <old> <new>", "replace a phone number"},
	{CmdRemovePhone, "<name> <phone>", "remove a phone number"},
	{CmdPhones, "<name>", "show contact phones"},
	{CmdAddEmail, "<name> <email>", "add an email"},
	{CmdEmails, "<name>", "show contact emails"},
	{CmdChangeEmail, "<name> <old> <new>", "replace an email"},
	{CmdRemoveEmail, "<name> <email>", "remove an email"},
	{CmdSetAddress, "<name> <address>", "set or update the address"},
	{CmdAddBirthday, "<name> <DD.MM.YYYY>", "add a birthday"},
	{CmdShowBirthday, "<name>", "show the birthday"},
	{CmdBirthdays, "[days]", "get upcoming congratulations"},
	{CmdSearch, "<query>", "find contacts by name, phone, email or address"},
	{CmdAll, "", "display the full address book"},
	{CmdAddNote, "<text>", "add a note"},
	{CmdShowNotes, "", "list all notes"},
	{CmdEditNote, "<n> <text>", "replace the text of note n"},
	{CmdDeleteNote, "<n>", "delete note n"},
	{CmdFindNote, "<query>", "find notes containing the text"},
	{CmdAddTag, "<n> <tag>", "tag note n"},
	{CmdDeleteTag, "<n> <tag>", "untag note n"},
	{CmdFindTag, "<tag>", "list notes with the tag"},
	{CmdSortNotes, "[asc|desc]", "list notes sorted by tags"},
	{CmdExit, "", "quit the program (also: close)"},
}

var knownCommands = func() map[Command]bool {
	m := make(map[Command]bool, len(commandTable)+1)
	for _, spec := range commandTable {
		m[spec.cmd] = true
	}
	m[CmdClose] = true
	return m
}()

// AllCommands returns every command word, in menu order.
func AllCommands() []string {
	out := make([]string, 0, len(commandTable)+1)
	for _, spec := range commandTable {
		out = append(out, string(spec.cmd))
	}
	return append(out, string(CmdClose))
}

// Usage returns "command args" for a command.
func Usage(cmd Command) string {
	for _, spec := range commandTable {
		if spec.cmd == cmd {
			return strings.TrimSpace(string(cmd) + " " + spec.args)
		}
	}
	return string(cmd)
}

// ParseInput splits a line into a command and its arguments. The command word
// is matched case-insensitively; ok is false for blank or unknown input.
func ParseInput(line string) (cmd Command, args []string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	cmd = Command(strings.ToLower(fields[0]))
	args = fields[1:]
	if !knownCommands[cmd] {
		return cmd, args, false
	}
	return cmd, args, true
}

// MenuText is the plain-text command menu.
func MenuText() string {
	var sb strings.Builder
	sb.WriteString("Main menu:\n")
	for _, spec := range commandTable {
		fmt.Fprintf(&sb, "  %s - %s\n", Usage(spec.cmd), spec.summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// MenuMarkdown is the command menu as a markdown table, for rich terminals.
func MenuMarkdown() string {
	var sb strings.Builder
	sb.WriteString("## Main menu\n\n| Command | Description |\n|---|---|\n")
	for _, spec := range commandTable {
		fmt.Fprintf(&sb, "| `%s` | %s |\n", Usage(spec.cmd), spec.summary)
	}
	return sb.String()
}
