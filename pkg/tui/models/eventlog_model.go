package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
	"github.com/go-go-golems/registryctl/pkg/tui/widgets"
)

const eventLogCapacity = 500

// severities is the cycle of the minimum level shown, from everything to
// errors only.
var severities = []tui.LogLevel{tui.LogLevelDebug, tui.LogLevelInfo, tui.LogLevelWarn, tui.LogLevelError}

func severity(l tui.LogLevel) int {
	if l == "" {
		l = tui.LogLevelInfo
	}
	for i, s := range severities {
		if s == l {
			return i
		}
	}
	return 1
}

// eventQuery selects the entries shown: a minimum level plus a free text
// term matched against source and text.
type eventQuery struct {
	minLevel tui.LogLevel
	term     string
}

func (q eventQuery) keep(e tui.EventLogEntry) bool {
	if severity(e.Level) < severity(q.minLevel) {
		return false
	}
	if q.term == "" {
		return true
	}
	hay := strings.ToLower(e.Source + " " + e.Text)
	return strings.Contains(hay, strings.ToLower(q.term))
}

func (q eventQuery) describe() string {
	var parts []string
	if q.minLevel != tui.LogLevelDebug {
		parts = append(parts, string(q.minLevel)+"+")
	}
	if q.term != "" {
		parts = append(parts, fmt.Sprintf("%q", q.term))
	}
	return strings.Join(parts, " ")
}

// EventLogModel shows poll failures, action outcomes and UI errors. It keeps
// the most recent eventLogCapacity entries.
type EventLogModel struct {
	entries []tui.EventLogEntry
	query   eventQuery

	editing bool
	input   textinput.Model

	width, height int
	vp            viewport.Model
}

func NewEventLogModel() EventLogModel {
	in := textinput.New()
	in.Prompt = "/ "
	in.Placeholder = "source or text"
	in.CharLimit = 120
	return EventLogModel{
		query: eventQuery{minLevel: tui.LogLevelDebug},
		input: in,
		vp:    viewport.New(0, 0),
	}
}

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	m.vp.Width = max(0, width-2)
	m.vp.Height = max(3, height-4)
	return m.render(false)
}

// Capturing reports whether keys go to the filter input.
func (m EventLogModel) Capturing() bool { return m.editing }

func (m EventLogModel) Len() int { return len(m.entries) }

// Visible counts the entries passing the current filter.
func (m EventLogModel) Visible() int {
	n := 0
	for _, e := range m.entries {
		if m.query.keep(e) {
			n++
		}
	}
	return n
}

func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	if e.Source == "" {
		e.Source = "system"
	}
	if e.Level == "" {
		e.Level = tui.LogLevelInfo
	}
	if len(m.entries) >= eventLogCapacity {
		copy(m.entries, m.entries[1:])
		m.entries[len(m.entries)-1] = e
	} else {
		m.entries = append(m.entries, e)
	}
	follow := m.vp.AtBottom() || m.vp.TotalLineCount() <= m.vp.Height
	return m.render(follow)
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.editing {
		switch k.String() {
		case "enter":
			m.query.term = strings.TrimSpace(m.input.Value())
			fallthrough
		case "esc":
			m.editing = false
			m.input.Blur()
			return m.render(true), nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "/":
		m.editing = true
		m.input.SetValue(m.query.term)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "l":
		i := severity(m.query.minLevel)
		m.query.minLevel = severities[(i+1)%len(severities)]
		return m.render(true), nil
	case "ctrl+l":
		m.query = eventQuery{minLevel: tui.LogLevelDebug}
		m.input.SetValue("")
		return m.render(true), nil
	case "c":
		m.entries = nil
		return m.render(true), nil
	case "G", "end":
		m.vp.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(k)
	return m, cmd
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()

	title := fmt.Sprintf("Events (%d)", len(m.entries))
	if d := m.query.describe(); d != "" {
		title = fmt.Sprintf("Events (%d of %d, %s)", m.Visible(), len(m.entries), d)
	}

	body := m.vp.View()
	switch {
	case len(m.entries) == 0:
		body = theme.TitleMuted.Render("(no events yet)")
	case m.Visible() == 0:
		body = theme.TitleMuted.Render("(nothing matches the filter)")
	}
	if m.editing {
		body = m.input.View() + "\n" + body
	}

	return widgets.NewBox(title).
		WithTitleRight("[/] filter  [l] level  [c] clear").
		WithContent(body).
		WithSize(m.width, m.vp.Height+3).
		Render()
}

func (m EventLogModel) render(bottom bool) EventLogModel {
	theme := styles.DefaultTheme()
	var b strings.Builder
	for _, e := range m.entries {
		if !m.query.keep(e) {
			continue
		}
		style := theme.TitleMuted
		switch e.Level {
		case tui.LogLevelError:
			style = theme.StatusDead
		case tui.LogLevelWarn:
			style = theme.Notice
		}
		stamp := "--:--:--"
		if !e.At.IsZero() {
			stamp = e.At.Format("15:04:05")
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			style.Render(styles.LogLevelIcon(string(e.Level))),
			theme.TitleMuted.Render(stamp),
			theme.TitleMuted.Render(fmt.Sprintf("%-9s", e.Source)),
			style.Render(widgets.Truncate(e.Text, max(20, m.vp.Width-22))),
		)
	}
	m.vp.SetContent(b.String())
	if bottom {
		m.vp.GotoBottom()
	}
	return m
}
