package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
)

// Box is a bordered panel. The title row holds the panel name on the left and
// key hints or a filter label on the right.
type Box struct {
	Title      string
	TitleRight string
	Content    string
	Width      int
	Height     int
	Style      lipgloss.Style
	theme      styles.Theme
}

func NewBox(title string) Box {
	theme := styles.DefaultTheme()
	return Box{Title: title, Style: theme.Border, theme: theme}
}

func (b Box) WithContent(content string) Box {
	b.Content = content
	return b
}

func (b Box) WithTitleRight(text string) Box {
	b.TitleRight = text
	return b
}

// WithSize sets the outer size. A zero height lets the content decide.
func (b Box) WithSize(width, height int) Box {
	b.Width = width
	b.Height = height
	return b
}

func (b Box) WithStyle(s lipgloss.Style) Box {
	b.Style = s
	return b
}

func (b Box) titleRow(inner int) string {
	if b.Title == "" && b.TitleRight == "" {
		return ""
	}
	left := b.theme.Title.Render(b.Title)
	right := b.theme.TitleMuted.Render(b.TitleRight)
	gap := max(1, inner-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (b Box) Render() string {
	inner := max(0, b.Width-2)
	body := b.Content
	rows := 0
	if title := b.titleRow(inner); title != "" {
		body = title + "\n" + body
		rows = 1
	}

	style := b.Style
	if b.Width > 0 {
		style = style.Width(inner)
	}
	if b.Height > 0 {
		style = style.Height(max(0, b.Height-2-rows))
	}
	return style.Render(body)
}

// ConfirmDialog renders a yes/no prompt with the confirm button labelled.
func ConfirmDialog(title, prompt, confirm string, width int) string {
	theme := styles.DefaultTheme()
	buttons := theme.KeybindKey.Render("[y]") + " " + confirm + "   " +
		theme.KeybindKey.Render("[n]") + " Cancel"
	return Dialog(title, prompt+"\n\n"+buttons, width)
}

// Dialog renders content in the dialog border style.
func Dialog(title, content string, width int) string {
	theme := styles.DefaultTheme()
	return NewBox(title).WithStyle(theme.Dialog).WithContent(content).WithSize(width, 0).Render()
}
