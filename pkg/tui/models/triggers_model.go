package models

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
	"github.com/go-go-golems/registryctl/pkg/tui/widgets"
)

var triggerColumns = []widgets.TableColumn{
	{Header: "Trigger name", Width: 44},
	{Header: "Dockerfile", Width: 16},
	{Header: "Context", Width: 10},
	{Header: "Branches/tags", Width: 16},
	{Header: "Pull robot", Width: 18},
	{Header: "Tagging", Width: 24},
}

type pendingAction struct {
	trigger string
	action  triggers.Action
	dialog  triggers.Confirmation
}

type TriggersModel struct {
	width  int
	height int

	loaded   bool
	at       time.Time
	err      string
	list     []api.Trigger
	rows     []triggers.Row
	role     access.Role
	caps     access.Set
	readOnly bool

	cursor   int
	confirm  *pendingAction
	creds    *triggers.CredentialsView
	inFlight map[string]triggers.Action

	notice    string
	noticeErr bool
}

func NewTriggersModel(readOnly bool) TriggersModel {
	role := access.Role{IsReadOnly: readOnly}
	return TriggersModel{
		readOnly: readOnly,
		role:     role,
		caps:     access.Capabilities(role),
		inFlight: map[string]triggers.Action{},
	}
}

func (m TriggersModel) WithSize(width, height int) TriggersModel {
	m.width, m.height = width, height
	return m
}

func (m TriggersModel) Rows() []triggers.Row { return m.rows }
func (m TriggersModel) Caps() access.Set     { return m.caps }

func (m TriggersModel) Notice() (string, bool) { return m.notice, m.noticeErr }

// Capturing reports whether a dialog or panel owns the keyboard.
func (m TriggersModel) Capturing() bool { return m.confirm != nil || m.creds != nil }

func (m TriggersModel) WithSnapshot(s tui.TriggersSnapshot) TriggersModel {
	m.loaded = true
	m.at = s.At
	m.role = s.Role
	m.role.IsReadOnly = m.role.IsReadOnly || m.readOnly
	m.caps = access.Capabilities(m.role)
	if s.Error != "" {
		m.err = s.Error
		return m
	}
	m.err = ""
	m.list = s.Triggers
	m.rows = triggers.Rows(s.Triggers, m.caps)
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
	return m
}

func (m TriggersModel) WithResult(r tui.TriggerActionResult) TriggersModel {
	delete(m.inFlight, r.Trigger)
	if r.Error != "" {
		m.notice, m.noticeErr = r.Error, true
		return m
	}
	m.notice, m.noticeErr = r.Notice, false
	return m
}

func (m TriggersModel) selected() (triggers.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return triggers.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m TriggersModel) trigger(id string) (api.Trigger, bool) {
	for _, t := range m.list {
		if t.ID == id {
			return t, true
		}
	}
	return api.Trigger{}, false
}

func (m TriggersModel) Update(msg tea.Msg) (TriggersModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.confirm != nil {
		switch v.String() {
		case "y", "enter":
			p := m.confirm
			m.confirm = nil
			return m.run(p.trigger, p.action)
		case "n", "esc", "q":
			m.confirm = nil
		}
		return m, nil
	}
	if m.creds != nil {
		switch v.String() {
		case "esc", "c", "q", "enter":
			m.creds = nil
		}
		return m, nil
	}

	switch v.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "e":
		return m.ask(triggers.ActionEnable)
	case "d":
		return m.ask(triggers.ActionDisable)
	case "x", "delete":
		return m.ask(triggers.ActionDelete)
	case "c":
		return m.ask(triggers.ActionViewCredentials)
	case "s", "enter":
		row, ok := m.selected()
		if ok && row.State == triggers.StateIncomplete && m.caps.Has(access.RunWizard) {
			id := row.ID
			return m, func() tea.Msg { return tui.OpenWizardMsg{TriggerID: id} }
		}
	case "r":
		return m, requestAction(tui.ActionRequest{Kind: tui.ActionRefreshTriggers})
	}
	return m, nil
}

// ask starts a row action, going through the confirmation dialog when the
// action has one.
func (m TriggersModel) ask(a triggers.Action) (TriggersModel, tea.Cmd) {
	row, ok := m.selected()
	if !ok || !row.Can(a) {
		return m, nil
	}
	if _, busy := m.inFlight[row.ID]; busy {
		return m, nil
	}
	if a == triggers.ActionViewCredentials {
		t, ok := m.trigger(row.ID)
		if !ok {
			return m, nil
		}
		view := triggers.Credentials(t)
		m.creds = &view
		return m, nil
	}
	if dialog, ok := triggers.ConfirmationFor(a); ok {
		m.confirm = &pendingAction{trigger: row.ID, action: a, dialog: dialog}
		return m, nil
	}
	return m.run(row.ID, a)
}

func (m TriggersModel) run(id string, a triggers.Action) (TriggersModel, tea.Cmd) {
	m.inFlight[id] = a
	m.notice, m.noticeErr = "", false
	return m, requestAction(tui.ActionRequest{Kind: tui.ActionTrigger, Trigger: id, TriggerAction: a})
}

func (m TriggersModel) keyHints(row triggers.Row) string {
	var hints []string
	for _, a := range row.Actions {
		switch a {
		case triggers.ActionEnable:
			hints = append(hints, "[e] "+triggers.ReenableLabel)
		case triggers.ActionDisable:
			hints = append(hints, "[d] disable")
		case triggers.ActionDelete:
			hints = append(hints, "[x] delete")
		case triggers.ActionViewCredentials:
			hints = append(hints, "[c] credentials")
		}
	}
	if row.State == triggers.StateIncomplete && m.caps.Has(access.RunWizard) {
		hints = append(hints, "[s] set up")
	}
	return strings.Join(hints, "  ")
}

func (m TriggersModel) View() string {
	theme := styles.DefaultTheme()

	if m.confirm != nil {
		d := m.confirm.dialog
		return widgets.ConfirmDialog(d.Title, d.Prompt, d.Button, min(m.width, 72))
	}
	if m.creds != nil {
		return widgets.NewBox("Trigger Credentials").
			WithTitleRight("[esc] close").
			WithContent(renderCredentials(*m.creds, theme)).
			WithSize(m.width, 0).
			Render()
	}

	var content string
	switch {
	case !m.loaded:
		content = theme.TitleMuted.Render("Loading build triggers...")
	case m.err != "":
		content = theme.ErrorText.Render("Could not load build triggers: " + m.err)
	default:
		content = m.renderTable()
	}

	return widgets.NewBox(fmt.Sprintf("Build Triggers (%d)", len(m.rows))).
		WithTitleRight("[r] refresh").
		WithContent(content).
		WithSize(m.width, 0).
		Render()
}

func (m TriggersModel) renderTable() string {
	theme := styles.DefaultTheme()
	rows := make([]widgets.TableRow, 0, len(m.rows))
	for i, r := range m.rows {
		tagging := strings.Join(r.TaggingOptions, ", ")
		tr := widgets.TableRow{
			Icon:  styles.TriggerIcon(string(r.State)),
			Cells: []string{r.Name, r.DockerfilePath, r.Context, r.BranchTagRegex, r.PullRobot, tagging},
		}
		if r.Notice != "" {
			tr.Detail = append(tr.Detail, theme.Notice.Render(r.Notice))
		}
		if a, busy := m.inFlight[r.ID]; busy {
			tr.Detail = append(tr.Detail, styles.IconRunning+" "+string(a)+"...")
		} else if i == m.cursor {
			if hints := m.keyHints(r); hints != "" {
				tr.Detail = append(tr.Detail, hints)
			}
		}
		rows = append(rows, tr)
	}
	return widgets.NewTable(triggerColumns).
		WithRows(rows).
		WithCursor(m.cursor).
		WithSize(m.width-2, 0).
		WithEmptyText("No build triggers defined.").
		Render()
}

func renderCredentials(v triggers.CredentialsView, theme styles.Theme) string {
	parts := []string{v.Intro, ""}
	for _, l := range v.Lines {
		if l.Instruction != "" {
			parts = append(parts, l.Instruction)
		}
		parts = append(parts, theme.Title.Render(l.Name+":"), l.Value, "")
	}
	if v.Footer != "" {
		parts = append(parts, theme.TitleMuted.Render(v.Footer))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
