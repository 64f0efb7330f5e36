package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
	"github.com/go-go-golems/registryctl/pkg/tui/widgets"
)

var buildColumns = []widgets.TableColumn{
	{Header: "Build ID", Width: 10},
	{Header: "Status", Width: 26},
	{Header: "Triggered by", Width: 40},
	{Header: "Date started", Width: 24},
	{Header: "Tags", Width: 20},
}

type BuildsModel struct {
	width  int
	height int

	loaded bool
	window builds.Window
	at     time.Time
	rows   []builds.Row
	err    string

	cursor   int
	expanded builds.Expansion
	loc      *time.Location
	now      func() time.Time

	vp viewport.Model
}

func NewBuildsModel(window builds.Window) BuildsModel {
	if window == "" {
		window = builds.WindowAll
	}
	return BuildsModel{
		window:   window,
		expanded: builds.Expansion{},
		loc:      time.Local,
		now:      time.Now,
		vp:       viewport.New(0, 0),
	}
}

func (m BuildsModel) WithSize(width, height int) BuildsModel {
	m.width, m.height = width, height
	m.vp.Width = max(0, width)
	m.vp.Height = max(3, height-3)
	return m.refresh()
}

func (m BuildsModel) WithLocation(loc *time.Location) BuildsModel {
	m.loc = loc
	return m.refresh()
}

func (m BuildsModel) Window() builds.Window { return m.window }
func (m BuildsModel) Rows() []builds.Row    { return m.rows }
func (m BuildsModel) Err() string           { return m.err }
func (m BuildsModel) UpdatedAt() time.Time  { return m.at }

// WithSnapshot replaces the rows. Expansion state survives refreshes.
func (m BuildsModel) WithSnapshot(s tui.BuildsSnapshot) BuildsModel {
	m.loaded = true
	m.at = s.At
	if s.Window != "" {
		m.window = s.Window
	}
	if s.Error != "" {
		m.err = s.Error
		m.rows = nil
		return m.refresh()
	}
	rows, err := builds.Rows(s.Builds)
	if err != nil {
		m.err = err.Error()
		m.rows = nil
		return m.refresh()
	}
	m.err = ""
	m.rows = rows
	if m.cursor >= len(rows) {
		m.cursor = max(0, len(rows)-1)
	}
	return m.refresh()
}

func (m BuildsModel) Update(msg tea.Msg) (BuildsModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch v.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m.refresh(), nil
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m.refresh(), nil
	case "enter", " ":
		if m.cursor < len(m.rows) {
			r := m.rows[m.cursor]
			if _, long := builds.CollapseMessage(r.Description.Message); long {
				m.expanded.Toggle(r.ID)
			}
		}
		return m.refresh(), nil
	case "w":
		next := m.window.Next()
		m.window = next
		return m.refresh(), requestAction(tui.ActionRequest{Kind: tui.ActionSetWindow, Window: next})
	case "r":
		return m, requestAction(tui.ActionRequest{Kind: tui.ActionRefreshBuilds})
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m BuildsModel) View() string {
	title := fmt.Sprintf("Builds (%d)", len(m.rows))
	right := "Filter: " + m.window.Label() + "  [w] window  [enter] expand  [r] refresh"
	return widgets.NewBox(title).
		WithTitleRight(right).
		WithContent(m.vp.View()).
		WithSize(m.width, m.vp.Height+3).
		Render()
}

func (m BuildsModel) detail(r builds.Row, selected bool) []string {
	d := r.Description
	var out []string
	if d.Message != "" {
		msg := d.MessageText(m.expanded.Expanded(r.ID))
		if _, long := builds.CollapseMessage(d.Message); long {
			icon := styles.IconExpand
			if m.expanded.Expanded(r.ID) {
				icon = styles.IconCollapse
			}
			msg = icon + " " + msg
		}
		out = append(out, strings.Split(msg, "\n")...)
	}
	if !selected || d.Kind != builds.KindCommit {
		return out
	}
	var meta []string
	if ago := d.AuthoredAgo(m.now()); ago != "" {
		meta = append(meta, "authored "+ago)
	}
	if d.Author != "" {
		meta = append(meta, "by "+d.Author)
	}
	if len(meta) > 0 {
		out = append(out, strings.Join(meta, " "))
	}
	for _, u := range []string{d.CommitURL, d.RefURL} {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// refresh re-renders the table into the viewport and scrolls the cursor row
// into view.
func (m BuildsModel) refresh() BuildsModel {
	theme := styles.DefaultTheme()
	switch {
	case !m.loaded:
		m.vp.SetContent(theme.TitleMuted.Render("Loading builds..."))
		return m
	case m.err != "":
		m.vp.SetContent(theme.ErrorText.Render("Could not load builds: " + m.err))
		return m
	}

	rows := make([]widgets.TableRow, 0, len(m.rows))
	cursorLine, cursorEnd := 0, 0
	line := 1
	for i, r := range m.rows {
		tr := widgets.TableRow{
			Icon:   styles.PhaseIcon(r.Phase),
			Cells:  []string{builds.ShortSHA(r.ID), r.Status, r.Description.Text, r.StartedText(m.loc), r.TagsText()},
			Detail: m.detail(r, i == m.cursor),
		}
		if i == m.cursor {
			cursorLine = line
			cursorEnd = line + len(tr.Detail)
		}
		line += 1 + len(tr.Detail)
		rows = append(rows, tr)
	}

	table := widgets.NewTable(buildColumns).
		WithRows(rows).
		WithCursor(m.cursor).
		WithSize(m.width-2, m.vp.Height).
		WithEmptyText(builds.NoBuildsMessage)
	m.vp.SetContent(table.Render())

	if m.vp.Height > 0 {
		if cursorLine < m.vp.YOffset {
			m.vp.SetYOffset(cursorLine)
		} else if cursorEnd >= m.vp.YOffset+m.vp.Height {
			m.vp.SetYOffset(cursorEnd - m.vp.Height + 1)
		}
	}
	return m
}

func requestAction(req tui.ActionRequest) tea.Cmd {
	return func() tea.Msg { return tui.ActionRequestMsg{Request: req} }
}
