// Package ui provides the visual styling for the assistant's interactive CLI.
// Reply tones map to colors; light and dark palettes are supported.
package ui

import (
	"os"
	"strconv"
	"strings"

	"assistbot/internal/bot"
	"assistbot/internal/config"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light Mode Colors (Default)
	LightForeground = lipgloss.Color("#1f2328")
	LightPrimary    = lipgloss.Color("#00aa00") // Prompt green
	LightMuted      = lipgloss.Color("#8c959f")
	LightBorder     = lipgloss.Color("#d0d7de")

	// Dark Mode Colors
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#3fdc3f")
	DarkMuted      = lipgloss.Color("#6e7781")
	DarkBorder     = lipgloss.Color("#30363d")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#8BC34A") // Light green
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Info        = lipgloss.Color("#00BCD4") // Cyan
)

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// ThemeByName resolves a ui.theme config value. "auto" detects.
func ThemeByName(name string) Theme {
	switch name {
	case config.ThemeDark:
		return DarkTheme()
	case config.ThemeLight:
		return LightTheme()
	}
	return DetectTheme()
}

// DetectTheme auto-detects based on terminal or returns light mode
func DetectTheme() Theme {
	// COLORFGBG is "foreground;background"; ANSI 0-6 and 8 are dark backgrounds.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) >= 2 {
			if bgIdx, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}

	if os.Getenv("ASSISTANT_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Text
	Body  lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style

	// Interactive
	Prompt    lipgloss.Style
	UserInput lipgloss.Style
	Reply     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Divider lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		UserInput: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Reply: lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Border),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// ForTone returns the text style for a reply tone.
func (s Styles) ForTone(t bot.Tone) lipgloss.Style {
	switch t {
	case bot.ToneInfo:
		return s.Info
	case bot.ToneSuccess:
		return s.Success
	case bot.ToneWarning:
		return s.Warning
	case bot.ToneError:
		return s.Error
	}
	return s.Body
}

// RenderReply renders a reply: tables through SimpleTable, text in its tone.
func (s Styles) RenderReply(r bot.Reply) string {
	if r.Table != nil {
		t := NewSimpleTable("", r.Table.Headers)
		for _, row := range r.Table.Rows {
			t.AddRow(row...)
		}
		return strings.TrimRight(t.View(s, s.ForTone(r.Tone)), "\n")
	}
	return s.ForTone(r.Tone).Render(r.Text)
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", width))
}
