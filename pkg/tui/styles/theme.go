package styles

import "github.com/charmbracelet/lipgloss"

// Colors adapt to light and dark terminal backgrounds.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#3B82F6"}
	colorKey     = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	colorOK      = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#FACC15"}
	colorFail    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorRule    = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#4B5563"}
	colorFg      = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F3F4F6"}
	colorFgDim   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorRowBack = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#1F2937"}
)

type Theme struct {
	Primary lipgloss.TerminalColor
	Muted   lipgloss.TerminalColor
	Text    lipgloss.TerminalColor
	TextDim lipgloss.TerminalColor

	Border     lipgloss.Style
	Dialog     lipgloss.Style
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Selected   lipgloss.Style
	Keybind    lipgloss.Style
	KeybindKey lipgloss.Style

	// build and trigger states
	StatusRunning lipgloss.Style
	StatusDead    lipgloss.Style
	StatusPending lipgloss.Style

	Notice    lipgloss.Style
	ErrorText lipgloss.Style
}

func DefaultTheme() Theme {
	fg := lipgloss.NewStyle().Foreground
	return Theme{
		Primary: colorAccent,
		Muted:   colorRule,
		Text:    colorFg,
		TextDim: colorFgDim,

		Border: lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(colorRule),
		Dialog: lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderForeground(colorWarn).Padding(0, 1),

		Title:      fg(colorFg).Bold(true),
		TitleMuted: fg(colorFgDim),
		Selected:   fg(colorFg).Bold(true).Background(colorRowBack),
		Keybind:    fg(colorFgDim),
		KeybindKey: fg(colorKey).Bold(true),

		StatusRunning: fg(colorOK),
		StatusDead:    fg(colorFail),
		StatusPending: fg(colorFgDim),

		Notice:    fg(colorWarn),
		ErrorText: fg(colorFail).Bold(true),
	}
}

// IconStyle picks the color for a status icon.
func (t Theme) IconStyle(icon string) lipgloss.Style {
	switch icon {
	case IconError:
		return t.StatusDead
	case IconWarning:
		return t.Notice
	case IconPending, IconSkipped:
		return t.StatusPending
	}
	return t.StatusRunning
}
