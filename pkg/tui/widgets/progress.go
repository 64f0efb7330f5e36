package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar is a one-line bar, used for the wizard's step position.
type ProgressBar struct {
	percent  int
	width    int
	style    lipgloss.Style
	showText bool
}

// StepProgress is the bar for step i (zero based) of n.
func StepProgress(i, n int) ProgressBar {
	if n <= 0 {
		return NewProgressBar(0)
	}
	return NewProgressBar(i * 100 / n)
}

// NewProgressBar clamps percent to 0..100.
func NewProgressBar(percent int) ProgressBar {
	return ProgressBar{percent: min(100, max(0, percent)), width: 20, showText: true}
}

func (p ProgressBar) WithWidth(width int) ProgressBar {
	if width > 0 {
		p.width = width
	}
	return p
}

func (p ProgressBar) WithStyle(style lipgloss.Style) ProgressBar {
	p.style = style
	return p
}

func (p ProgressBar) WithShowText(show bool) ProgressBar {
	p.showText = show
	return p
}

func (p ProgressBar) Render() string {
	filled := p.width * p.percent / 100
	bar := p.style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", p.width-filled)
	if !p.showText {
		return bar
	}
	return fmt.Sprintf("%s %3d%%", bar, p.percent)
}
