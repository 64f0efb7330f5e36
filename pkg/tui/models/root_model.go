package models

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/tui/widgets"
	"github.com/rs/zerolog/log"
)

type ViewID string

const (
	ViewBuilds   ViewID = "builds"
	ViewTriggers ViewID = "triggers"
	ViewWizard   ViewID = "wizard"
	ViewEvents   ViewID = "events"
)

// tabOrder is the tab cycle. The wizard is reached from the trigger list only.
var tabOrder = []ViewID{ViewBuilds, ViewTriggers, ViewEvents}

type RootModelOptions struct {
	Repo     api.RepoRef
	ReadOnly bool
	Window   builds.Window
	// Publish sends a request to the action runner.
	Publish func(tui.ActionRequest) error
	// OpenWizard builds the setup wizard for a trigger.
	OpenWizard func(triggerID string) WizardModel
	// InitialTrigger opens the wizard for that trigger on start.
	InitialTrigger string
	Now            func() time.Time
}

type RootModel struct {
	opts RootModelOptions

	width  int
	height int

	active ViewID

	builds   BuildsModel
	triggers TriggersModel
	wizard   *WizardModel
	events   EventLogModel
}

func NewRootModel(opts RootModelOptions) RootModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return RootModel{
		opts:     opts,
		active:   ViewBuilds,
		builds:   NewBuildsModel(opts.Window),
		triggers: NewTriggersModel(opts.ReadOnly),
		events:   NewEventLogModel(),
	}
}

func (m RootModel) Active() ViewID { return m.active }

func (m RootModel) Init() tea.Cmd {
	if id := m.opts.InitialTrigger; id != "" {
		return func() tea.Msg { return tui.OpenWizardMsg{TriggerID: id} }
	}
	return nil
}

func (m RootModel) capturing() bool {
	switch m.active {
	case ViewWizard:
		return m.wizard != nil
	case ViewTriggers:
		return m.triggers.Capturing()
	case ViewEvents:
		return m.events.Capturing()
	}
	return false
}

func (m RootModel) quit() (tea.Model, tea.Cmd) {
	if m.wizard != nil {
		if err := m.wizard.SaveDraft(); err != nil {
			log.Warn().Err(err).Msg("save wizard draft")
		}
		m.wizard.Close()
	}
	return m, tea.Quit
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		return m.resize(), nil
	case tea.KeyMsg:
		if v.String() == "ctrl+c" {
			return m.quit()
		}
		if !m.capturing() {
			switch v.String() {
			case "q":
				return m.quit()
			case "tab":
				m.active = nextTab(m.active)
				return m, nil
			case "1":
				m.active = ViewBuilds
				return m, nil
			case "2":
				m.active = ViewTriggers
				return m, nil
			case "3":
				m.active = ViewEvents
				return m, nil
			}
		}
		return m.updateActive(v)
	case tui.BuildsSnapshotMsg:
		m.builds = m.builds.WithSnapshot(v.Snapshot)
		return m, nil
	case tui.TriggersSnapshotMsg:
		m.triggers = m.triggers.WithSnapshot(v.Snapshot)
		return m, nil
	case tui.TriggerActionResultMsg:
		m.triggers = m.triggers.WithResult(v.Result)
		return m, nil
	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil
	case tui.ActionRequestMsg:
		return m, m.publish(v.Request)
	case tui.OpenWizardMsg:
		if m.opts.OpenWizard == nil {
			return m, nil
		}
		if m.wizard != nil {
			m.wizard.Close()
		}
		w := m.opts.OpenWizard(v.TriggerID).WithSize(m.width, m.contentHeight())
		m.wizard = &w
		m.active = ViewWizard
		return m, w.Init()
	case tui.WizardClosedMsg:
		m.wizard = nil
		m.active = ViewTriggers
		if v.Activated {
			return m, m.publish(tui.ActionRequest{Kind: tui.ActionRefresh})
		}
		return m, nil
	}

	// spinner ticks and request results of the wizard
	if m.wizard != nil {
		w, cmd := m.wizard.Update(msg)
		m.wizard = &w
		return m, cmd
	}
	return m, nil
}

func (m RootModel) updateActive(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case ViewBuilds:
		m.builds, cmd = m.builds.Update(k)
	case ViewTriggers:
		m.triggers, cmd = m.triggers.Update(k)
	case ViewEvents:
		m.events, cmd = m.events.Update(k)
	case ViewWizard:
		if m.wizard != nil {
			w, c := m.wizard.Update(k)
			m.wizard = &w
			cmd = c
		}
	}
	return m, cmd
}

func (m RootModel) publish(req tui.ActionRequest) tea.Cmd {
	pub := m.opts.Publish
	now := m.opts.Now
	return func() tea.Msg {
		if pub == nil {
			return nil
		}
		if err := pub(req); err != nil {
			return tui.EventLogAppendMsg{Entry: tui.EventLogEntry{
				At: now(), Source: "ui", Level: tui.LogLevelError, Text: "publish " + string(req.Kind) + ": " + err.Error(),
			}}
		}
		return nil
	}
}

func nextTab(cur ViewID) ViewID {
	for i, v := range tabOrder {
		if v == cur {
			return tabOrder[(i+1)%len(tabOrder)]
		}
	}
	return ViewBuilds
}

// header (2 lines) and footer (2 or 3 lines)
func (m RootModel) contentHeight() int {
	return max(5, m.height-6)
}

func (m RootModel) resize() RootModel {
	h := m.contentHeight()
	m.builds = m.builds.WithSize(m.width, h)
	m.triggers = m.triggers.WithSize(m.width, h)
	m.events = m.events.WithSize(m.width, h)
	if m.wizard != nil {
		w := m.wizard.WithSize(m.width, h)
		m.wizard = &w
	}
	return m
}

func (m RootModel) keybinds() []widgets.Keybind {
	switch m.active {
	case ViewBuilds:
		return []widgets.Keybind{{Key: "↑/↓", Label: "select"}, {Key: "enter", Label: "expand"}, {Key: "w", Label: "window"}, {Key: "r", Label: "refresh"}, {Key: "tab", Label: "view"}, {Key: "q", Label: "quit"}}
	case ViewTriggers:
		return []widgets.Keybind{{Key: "↑/↓", Label: "select"}, {Key: "e/d", Label: "enable/disable"}, {Key: "x", Label: "delete"}, {Key: "c", Label: "credentials"}, {Key: "s", Label: "set up"}, {Key: "tab", Label: "view"}, {Key: "q", Label: "quit"}}
	case ViewWizard:
		return []widgets.Keybind{{Key: "enter", Label: "next"}, {Key: "esc", Label: "back"}, {Key: "ctrl+c", Label: "quit"}}
	}
	return []widgets.Keybind{{Key: "/", Label: "filter"}, {Key: "l", Label: "level"}, {Key: "c", Label: "clear"}, {Key: "tab", Label: "view"}, {Key: "q", Label: "quit"}}
}

func (m RootModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	tabs := make([]widgets.Tab, 0, len(tabOrder))
	for i, v := range tabOrder {
		tabs = append(tabs, widgets.Tab{Key: fmt.Sprint(i + 1), Label: string(v), Active: v == m.active})
	}
	hdr := widgets.NewHeader("registryctl").
		WithRepo(m.opts.Repo.String(), m.builds.Err() == "").
		WithTabs(tabs).
		WithUpdated(m.builds.UpdatedAt(), m.opts.Now()).
		WithWidth(width)
	if m.active == ViewWizard {
		hdr = hdr.WithKeybinds([]widgets.Keybind{{Key: "ctrl+x", Label: "abandon setup"}})
	}
	header := hdr.Render()

	var body string
	switch m.active {
	case ViewTriggers:
		body = m.triggers.View()
	case ViewEvents:
		body = m.events.View()
	case ViewWizard:
		if m.wizard != nil {
			body = m.wizard.View()
		}
	default:
		body = m.builds.View()
	}

	footer := widgets.NewFooter(m.keybinds()).WithWidth(width)
	if m.active == ViewTriggers {
		msg, isErr := m.triggers.Notice()
		footer = footer.WithMessage(msg, isErr)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer.Render())
}
