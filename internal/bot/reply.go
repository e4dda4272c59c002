package bot

// Tone selects how a reply is colored.
type Tone int

const (
	ToneDefault Tone = iota
	ToneInfo
	ToneSuccess
	ToneWarning
	ToneError
)

func (t Tone) String() string {
	switch t {
	case ToneInfo:
		return "info"
	case ToneSuccess:
		return "success"
	case ToneWarning:
		return "warning"
	case ToneError:
		return "error"
	default:
		return "default"
	}
}

// Table is a tabular reply body.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Reply is the outcome of one command.
type Reply struct {
	Text    string
	Table   *Table
	Tone    Tone
	Help    bool // Text is the menu; rich UIs may render MenuMarkdown instead
	Quit    bool // the REPL should exit
	Mutated bool // book or notebook changed and should be saved
}

func text(tone Tone, msg string) Reply {
	return Reply{Text: msg, Tone: tone}
}

func mutated(msg string) Reply {
	return Reply{Text: msg, Tone: ToneSuccess, Mutated: true}
}

func table(headers []string, rows [][]string) Reply {
	return Reply{Table: &Table{Headers: headers, Rows: rows}, Tone: ToneWarning}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
