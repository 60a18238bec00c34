package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colours the card view.
type Theme struct {
	Name    string
	Stock   lipgloss.Color
	Hole    lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeManila = Theme{
		Name:    "manila",
		Stock:   lipgloss.Color("#f3e2b3"),
		Hole:    lipgloss.Color("#1a1a1a"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888899"),
		Accent:  lipgloss.Color("#00ccff"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Stock:   lipgloss.Color("#003300"),
		Hole:    lipgloss.Color("#00ff00"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Accent:  lipgloss.Color("#88ff88"),
		Success: lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Stock:   lipgloss.Color("#000000"),
		Hole:    lipgloss.Color("#ffffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Accent:  lipgloss.Color("#0088ff"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	}
)

var Themes = map[string]Theme{
	ThemeManila.Name:     ThemeManila,
	ThemeRetroGreen.Name: ThemeRetroGreen,
	ThemeMinimal.Name:    ThemeMinimal,
}

type styles struct {
	title  lipgloss.Style
	card   lipgloss.Style
	holes  lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	value  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	hint   lipgloss.Style
	border lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		holes:  lipgloss.NewStyle().Foreground(t.Hole).Background(t.Stock),
		label:  lipgloss.NewStyle().Foreground(t.Muted),
		muted:  lipgloss.NewStyle().Foreground(t.Muted),
		value:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		ok:     lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		err:    lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		hint:   lipgloss.NewStyle().Italic(true).Foreground(t.Muted),
		border: lipgloss.NewStyle().Foreground(t.Muted),
	}
}

// progressBar renders p in [0,1] over width cells.
func progressBar(p float64, width int, s styles) string {
	filled := int(p * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if p >= 1 {
		return s.ok.Render(bar)
	}
	return s.value.Render(bar)
}
