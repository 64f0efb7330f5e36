package models

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/fakeregistry"
	"github.com/go-go-golems/registryctl/pkg/tagtemplate"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/wizard"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and everything it batches, returning the resulting messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func actionRequests(msgs []tea.Msg) []tui.ActionRequest {
	var out []tui.ActionRequest
	for _, m := range msgs {
		if r, ok := m.(tui.ActionRequestMsg); ok {
			out = append(out, r.Request)
		}
	}
	return out
}

func adminTriggers() tui.TriggersSnapshot {
	return tui.TriggersSnapshot{
		At:   time.Now(),
		Role: access.Role{IsAdmin: true, CanWrite: true},
		Triggers: []api.Trigger{
			{ID: "t1", Service: api.ServiceGitHub, IsActive: true, Enabled: true, BuildSource: "org/repo", Config: &api.TriggerConfig{DockerfilePath: "/Dockerfile"}},
			{ID: "t2", Service: api.ServiceCustomGit, IsActive: false, BuildSource: "git@example.com:org/repo.git"},
		},
	}
}

func TestRootModel_TabsAndSnapshots(t *testing.T) {
	m := NewRootModel(RootModelOptions{Repo: fakeregistry.TestRepo})
	var tm tea.Model = m
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm, _ = tm.Update(tui.BuildsSnapshotMsg{Snapshot: tui.BuildsSnapshot{
		At:     time.Now(),
		Window: builds.WindowAll,
		Builds: []api.Build{{ID: "b1", Phase: api.PhaseComplete}, {ID: "b2", Phase: api.PhaseBuilding}},
	}})
	require.Len(t, tm.(RootModel).builds.Rows(), 2)
	require.Equal(t, ViewBuilds, tm.(RootModel).Active())

	tm, _ = tm.Update(key("tab"))
	require.Equal(t, ViewTriggers, tm.(RootModel).Active())
	tm, _ = tm.Update(key("tab"))
	require.Equal(t, ViewEvents, tm.(RootModel).Active())
	tm, _ = tm.Update(key("tab"))
	require.Equal(t, ViewBuilds, tm.(RootModel).Active())

	tm, _ = tm.Update(tui.BuildsSnapshotMsg{Snapshot: tui.BuildsSnapshot{At: time.Now(), Error: "Request failed with status code 500"}})
	require.Equal(t, "Request failed with status code 500", tm.(RootModel).builds.Err())
	require.Contains(t, tm.View(), "Could not load builds")
}

func TestBuildsModel_WindowCycleRequestsRefetch(t *testing.T) {
	m := NewBuildsModel(builds.WindowAll).WithSize(100, 20)
	m, cmd := m.Update(key("w"))
	require.Equal(t, builds.Window48Hours, m.Window())
	reqs := actionRequests(drain(cmd))
	require.Len(t, reqs, 1)
	require.Equal(t, tui.ActionSetWindow, reqs[0].Kind)
	require.Equal(t, builds.Window48Hours, reqs[0].Window)

	m = m.WithSnapshot(tui.BuildsSnapshot{At: time.Now(), Window: builds.Window48Hours})
	require.Contains(t, m.View(), "No matching builds found")
}

func TestBuildsModel_UnknownPhaseIsAnError(t *testing.T) {
	m := NewBuildsModel("").WithSize(100, 20)
	m = m.WithSnapshot(tui.BuildsSnapshot{At: time.Now(), Builds: []api.Build{{ID: "b1", Phase: "exploded"}}})
	require.NotEmpty(t, m.Err())
	require.Empty(t, m.Rows())
}

func TestTriggersModel_ConfirmThenRequest(t *testing.T) {
	m := NewTriggersModel(false).WithSize(120, 30)
	m = m.WithSnapshot(adminTriggers())
	require.Len(t, m.Rows(), 2)

	m, cmd := m.Update(key("d"))
	require.Nil(t, cmd)
	require.True(t, m.Capturing())
	require.Contains(t, m.View(), "Are you sure you want to disable this build trigger?")

	m, cmd = m.Update(key("y"))
	require.False(t, m.Capturing())
	reqs := actionRequests(drain(cmd))
	require.Len(t, reqs, 1)
	require.Equal(t, tui.ActionRequest{Kind: tui.ActionTrigger, Trigger: "t1", TriggerAction: triggers.ActionDisable}, reqs[0])

	// no second dialog while the first request is out
	m, _ = m.Update(key("x"))
	require.False(t, m.Capturing())

	m = m.WithResult(tui.TriggerActionResult{Trigger: "t1", Action: triggers.ActionDisable, Notice: triggers.DisabledNotice})
	notice, isErr := m.Notice()
	require.Equal(t, triggers.DisabledNotice, notice)
	require.False(t, isErr)

	m, _ = m.Update(key("x"))
	require.True(t, m.Capturing())
	m, cmd = m.Update(key("n"))
	require.False(t, m.Capturing())
	require.Nil(t, cmd)
}

func TestTriggersModel_IncompleteOpensWizard(t *testing.T) {
	m := NewTriggersModel(false).WithSize(120, 30)
	m = m.WithSnapshot(adminTriggers())
	m, _ = m.Update(key("j"))

	// disabling an incomplete trigger is not offered
	m, _ = m.Update(key("d"))
	require.False(t, m.Capturing())

	_, cmd := m.Update(key("s"))
	msgs := drain(cmd)
	require.Equal(t, []tea.Msg{tui.OpenWizardMsg{TriggerID: "t2"}}, msgs)
}

func TestTriggersModel_ReadOnly(t *testing.T) {
	m := NewTriggersModel(true).WithSize(120, 30)
	m = m.WithSnapshot(adminTriggers())
	require.False(t, m.Caps().Has(access.DeleteTrigger))

	require.True(t, m.Caps().Has(access.ViewCredentials))

	m, _ = m.Update(key("x"))
	require.False(t, m.Capturing())
	m, cmd := m.Update(key("c"))
	require.Nil(t, cmd)
	require.True(t, m.Capturing())
	require.Contains(t, m.View(), "Trigger Credentials")
}

func newWizardModel(t *testing.T, draftRoot string) (WizardModel, *fakeregistry.Server) {
	t.Helper()
	fake := fakeregistry.New()
	fake.Seed()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(api.Options{Server: srv.URL})
	require.NoError(t, err)

	w := wizard.New(c, fakeregistry.TestRepo, fakeregistry.PendingTriggerID)
	m := NewWizardModel(context.Background(), w, tagtemplate.New(tagtemplate.Options{}), draftRoot).WithSize(100, 30)
	for _, msg := range drain(m.Init()) {
		m, _ = m.Update(msg)
	}
	return m, fake
}

func feed(m WizardModel, msgs ...tea.Msg) (WizardModel, []tea.Msg) {
	var out []tea.Msg
	for _, msg := range msgs {
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		for _, r := range drain(cmd) {
			switch r.(type) {
			case wizardRobotsMsg, wizardAnalyzedMsg, wizardActivatedMsg:
				var next []tea.Msg
				m, next = feed(m, r)
				out = append(out, next...)
			default:
				out = append(out, r)
			}
		}
	}
	return m, out
}

func TestWizardModel_FullRun(t *testing.T) {
	m, fake := newWizardModel(t, t.TempDir())
	require.Len(t, m.robots, 2)

	m, _ = feed(m, key("https://github.com/quay/quay"), key("enter"))
	require.Equal(t, wizard.StepTaggingOptions, m.w.Step())

	// nothing selected yet
	m, _ = feed(m, key("enter"))
	require.Equal(t, wizard.StepTaggingOptions, m.w.Step())
	require.Contains(t, m.View(), wizard.MsgNoTaggingOption)

	m, _ = feed(m, key("tab"), key("tab"), key("tab"), key("template2"), key("enter"))
	require.Equal(t, []string{"template2"}, m.w.Config().TagTemplates)
	m, _ = feed(m, key("enter"))
	require.Equal(t, wizard.StepDockerfilePath, m.w.Step())

	m, _ = feed(m, key("/Dockerfile"), key("enter"), key("/context"), key("enter"))
	require.Equal(t, wizard.StepRobotAccount, m.w.Step())
	m, _ = feed(m, key("enter"))
	require.Equal(t, wizard.StepReview, m.w.Step())
	require.Contains(t, m.View(), "template2 -> template2")

	m, _ = feed(m, key("enter"))
	require.NotNil(t, m.w.Analysis())
	m, _ = feed(m, key("enter"))
	require.Equal(t, wizard.StepActivated, m.w.Step())
	require.Contains(t, m.View(), triggers.ActivatedText)

	tr, ok := fake.Trigger(fakeregistry.TestRepo, fakeregistry.PendingTriggerID)
	require.True(t, ok)
	require.True(t, tr.IsActive)
	require.Equal(t, "/Dockerfile", tr.Config.DockerfilePath)
	require.Equal(t, "/context", tr.Config.Context)
	require.Nil(t, tr.PullRobot)

	_, out := feed(m, key("enter"))
	require.Contains(t, out, tea.Msg(tui.WizardClosedMsg{TriggerID: fakeregistry.PendingTriggerID, Activated: true}))
}

func TestWizardModel_EscSavesDraft(t *testing.T) {
	root := t.TempDir()
	m, _ := newWizardModel(t, root)
	m, out := feed(m, key("https://github.com/quay/quay"), key("esc"))
	require.Contains(t, out, tea.Msg(tui.WizardClosedMsg{TriggerID: fakeregistry.PendingTriggerID}))

	m, _ = newWizardModel(t, root)
	require.Equal(t, "https://github.com/quay/quay", m.w.Config().BuildSource)
	require.Equal(t, "https://github.com/quay/quay", m.input.Value())
}

func TestWizardModel_AbandonRemovesDraft(t *testing.T) {
	root := t.TempDir()
	m, _ := newWizardModel(t, root)
	m, _ = feed(m, key("https://github.com/quay/quay"), key("enter"))
	require.NoError(t, m.SaveDraft())

	m, _ = feed(m, key("ctrl+x"))
	require.Equal(t, wizard.StepFailed, m.w.Step())
	_, out := feed(m, key("enter"))
	require.Contains(t, out, tea.Msg(tui.WizardClosedMsg{TriggerID: fakeregistry.PendingTriggerID}))

	m, _ = newWizardModel(t, root)
	require.Equal(t, wizard.StepRepoURL, m.w.Step())
	require.Empty(t, m.w.Config().BuildSource)
}

func TestBuildsModel_StartedInLocation(t *testing.T) {
	m := NewBuildsModel(builds.WindowAll).WithSize(140, 20).WithLocation(time.UTC)
	m = m.WithSnapshot(tui.BuildsSnapshot{At: time.Now(), Builds: []api.Build{
		{ID: "0a1b2c3d4e5f", Phase: api.PhaseComplete, Started: "Wed, 18 Sep 2019 14:14:23 -0000"},
	}})
	require.Empty(t, m.Err())
	require.Contains(t, m.View(), "Sep 18, 2019, 2:14 PM")
	require.Contains(t, m.View(), "0a1b2c3")
}

func TestEventLogModel_LevelAndTextFilter(t *testing.T) {
	m := NewEventLogModel().WithSize(120, 20)
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	m = m.Append(tui.EventLogEntry{At: at, Source: "builds", Text: "builds: showing Last 24 hours"})
	m = m.Append(tui.EventLogEntry{At: at, Source: "triggers", Level: tui.LogLevelError, Text: "trigger abc: disable failed"})
	m = m.Append(tui.EventLogEntry{At: at, Level: tui.LogLevelWarn, Text: "action: bad envelope"})
	require.Equal(t, 3, m.Visible())
	require.Contains(t, m.View(), "system")

	m, _ = m.Update(key("l"))
	m, _ = m.Update(key("l"))
	require.Equal(t, 2, m.Visible())
	require.Contains(t, m.View(), "warn+")

	m, _ = m.Update(key("/"))
	require.True(t, m.Capturing())
	for _, r := range "trigger" {
		m, _ = m.Update(key(string(r)))
	}
	m, _ = m.Update(key("enter"))
	require.False(t, m.Capturing())
	require.Equal(t, 1, m.Visible())
	require.Contains(t, m.View(), "disable failed")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Equal(t, 3, m.Visible())

	m, _ = m.Update(key("c"))
	require.Equal(t, 0, m.Len())
	require.Contains(t, m.View(), "no events yet")
}

func TestEventLogModel_Bounded(t *testing.T) {
	m := NewEventLogModel()
	for i := 0; i < eventLogCapacity+25; i++ {
		m = m.Append(tui.EventLogEntry{Text: "poll"})
	}
	require.Equal(t, eventLogCapacity, m.Len())
}
