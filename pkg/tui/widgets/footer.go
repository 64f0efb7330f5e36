package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
)

// Footer is the bottom bar: an optional notice line (the result of the last
// trigger action) above centered key hints.
type Footer struct {
	Keybinds []Keybind
	Width    int
	Message  string
	IsError  bool
	theme    styles.Theme
}

func NewFooter(keybinds []Keybind) Footer {
	return Footer{Keybinds: keybinds, theme: styles.DefaultTheme()}
}

func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

func (f Footer) WithMessage(msg string, isError bool) Footer {
	f.Message = msg
	f.IsError = isError
	return f
}

func (f Footer) Render() string {
	keys := RenderKeybinds(f.Keybinds, f.theme)
	keys = lipgloss.NewStyle().
		PaddingLeft(max(0, (f.Width-lipgloss.Width(keys))/2)).
		Width(f.Width).
		Render(keys)

	lines := []string{rule(f.Width, f.theme)}
	if f.Message != "" {
		style := f.theme.Notice
		if f.IsError {
			style = f.theme.ErrorText
		}
		lines = append(lines, style.Render(Truncate(f.Message, f.Width)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, keys)...)
}
