package config

// Theme names.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ValidThemes lists accepted ui.theme values.
var ValidThemes = []string{ThemeAuto, ThemeLight, ThemeDark}

// UIConfig configures the interactive REPL.
type UIConfig struct {
	Theme  string `yaml:"theme"`  // auto, light, dark
	Prompt string `yaml:"prompt"` // text shown before the input
	Plain  bool   `yaml:"plain"`  // line-mode REPL even on a terminal
}
