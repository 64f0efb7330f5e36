package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/draft"
	"github.com/go-go-golems/registryctl/pkg/tagtemplate"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
	"github.com/go-go-golems/registryctl/pkg/tui/widgets"
	"github.com/go-go-golems/registryctl/pkg/wizard"
	"github.com/rs/zerolog/log"
)

// tagging step focus order
type taggingField int

const (
	fieldLatest taggingField = iota
	fieldBranchTag
	fieldRegex
	fieldTemplate
	taggingFieldCount
)

type wizardRobotsMsg struct {
	options []wizard.RobotOption
	err     error
}

type wizardAnalyzedMsg struct {
	analysis *api.Analysis
	err      error
}

type wizardActivatedMsg struct {
	trigger *api.Trigger
	err     error
}

type WizardModel struct {
	w         *wizard.Wizard
	eval      *tagtemplate.Evaluator
	draftRoot string

	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int

	input   textinput.Model
	tmpl    textinput.Model
	focus   taggingField
	touched bool

	robots      []wizard.RobotOption
	robotCursor int
	robotsErr   string

	preview []tagtemplate.Result
	spin    spinner.Model
}

// NewWizardModel wraps w. A saved draft under draftRoot, if any, is applied
// first.
func NewWizardModel(parent context.Context, w *wizard.Wizard, eval *tagtemplate.Evaluator, draftRoot string) WizardModel {
	ctx, cancel := context.WithCancel(parent)

	input := textinput.New()
	input.CharLimit = 512
	input.Prompt = "> "
	tmpl := textinput.New()
	tmpl.CharLimit = 256
	tmpl.Prompt = "+ "
	tmpl.Placeholder = "${commit_info.short_sha}"

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := WizardModel{
		w:         w,
		eval:      eval,
		draftRoot: draftRoot,
		ctx:       ctx,
		cancel:    cancel,
		input:     input,
		tmpl:      tmpl,
		spin:      sp,
	}

	if draftRoot != "" {
		d, err := draft.LoadOptional(draftRoot, w.TriggerID())
		if err != nil {
			log.Warn().Err(err).Str("trigger", w.TriggerID()).Msg("load wizard draft")
		} else if d != nil {
			if err := d.Apply(w); err != nil {
				log.Warn().Err(err).Str("trigger", w.TriggerID()).Msg("apply wizard draft")
			}
		}
	}
	return m.enterStep()
}

func (m WizardModel) Wizard() *wizard.Wizard { return m.w }

func (m WizardModel) WithSize(width, height int) WizardModel {
	m.width, m.height = width, height
	m.input.Width = max(10, width-8)
	m.tmpl.Width = max(10, width-8)
	return m
}

func (m WizardModel) Init() tea.Cmd {
	return tea.Batch(m.loadRobots(), textinput.Blink)
}

func (m WizardModel) loadRobots() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		opts, err := w.LoadRobots(ctx)
		return wizardRobotsMsg{options: opts, err: err}
	}
}

// Close stops in-flight reads. A write already sent still completes.
func (m WizardModel) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// SaveDraft keeps the values of an unfinished wizard for the next session.
func (m WizardModel) SaveDraft() error {
	if m.draftRoot == "" {
		return nil
	}
	d, ok := draft.FromWizard(m.w)
	if !ok {
		return nil
	}
	return draft.Save(m.draftRoot, d)
}

func (m WizardModel) removeDraft() {
	if m.draftRoot == "" {
		return
	}
	if err := draft.Remove(m.draftRoot, m.w.TriggerID()); err != nil {
		log.Warn().Err(err).Str("trigger", m.w.TriggerID()).Msg("remove wizard draft")
	}
}

// enterStep loads the current step's value into the inputs.
func (m WizardModel) enterStep() WizardModel {
	cfg := m.w.Config()
	m.touched = false
	m.input.Blur()
	m.tmpl.Blur()
	switch m.w.Step() {
	case wizard.StepRepoURL:
		m.input.Placeholder = "https://github.com/org/repo"
		m.input.SetValue(cfg.BuildSource)
		m.input.Focus()
	case wizard.StepTaggingOptions:
		m.input.Placeholder = "^(master|main)$"
		m.input.SetValue(cfg.BranchTagRegex)
		m.tmpl.SetValue("")
		m.focus = fieldLatest
	case wizard.StepDockerfilePath:
		m.input.Placeholder = "/Dockerfile"
		m.input.SetValue(cfg.DockerfilePath)
		m.input.Focus()
	case wizard.StepContextPath:
		m.input.Placeholder = "/"
		m.input.SetValue(cfg.Context)
		m.input.Focus()
	case wizard.StepRobotAccount:
		m.robotCursor = 0
		robot := m.w.Robot()
		for i, r := range m.robots {
			if r.Name == robot {
				m.robotCursor = i + 1
			}
		}
	case wizard.StepReview:
		m.preview = m.eval.Preview(cfg.TagTemplates, tagtemplate.SampleMetadata(cfg.BuildSource))
	}
	m.input.CursorEnd()
	return m
}

func (m WizardModel) focusTagging(f taggingField) WizardModel {
	m.focus = (f + taggingFieldCount) % taggingFieldCount
	m.input.Blur()
	m.tmpl.Blur()
	switch m.focus {
	case fieldRegex:
		m.input.Focus()
	case fieldTemplate:
		m.tmpl.Focus()
	}
	return m
}

func (m WizardModel) closed(activated bool) tea.Cmd {
	id := m.w.TriggerID()
	return func() tea.Msg { return tui.WizardClosedMsg{TriggerID: id, Activated: activated} }
}

func (m WizardModel) Update(msg tea.Msg) (WizardModel, tea.Cmd) {
	switch v := msg.(type) {
	case wizardRobotsMsg:
		if v.err != nil {
			m.robotsErr = v.err.Error()
			return m, nil
		}
		m.robots = v.options
		if m.w.Step() == wizard.StepRobotAccount {
			m = m.enterStep()
		}
		return m, nil
	case wizardAnalyzedMsg:
		return m, nil
	case wizardActivatedMsg:
		if v.err == nil {
			m.removeDraft()
		}
		return m, nil
	case spinner.TickMsg:
		if !m.w.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(v)
		return m, cmd
	case tea.KeyMsg:
		return m.updateKey(v)
	}
	return m, nil
}

func (m WizardModel) updateKey(k tea.KeyMsg) (WizardModel, tea.Cmd) {
	step := m.w.Step()

	switch step {
	case wizard.StepActivated:
		if k.String() == "enter" || k.String() == "esc" {
			_ = m.w.Dismiss()
			m.Close()
			return m, m.closed(true)
		}
		return m, nil
	case wizard.StepFailed:
		if k.String() == "enter" || k.String() == "esc" {
			_ = m.w.Dismiss()
			m.removeDraft()
			m.Close()
			return m, m.closed(false)
		}
		return m, nil
	case wizard.StepClosed:
		return m, nil
	}

	if m.w.Busy() {
		return m, nil
	}

	switch k.String() {
	case "ctrl+x":
		if err := m.w.Abort(); err != nil {
			log.Debug().Err(err).Msg("wizard abort rejected")
		}
		return m, nil
	case "esc":
		if step == wizard.StepRepoURL {
			if err := m.SaveDraft(); err != nil {
				log.Warn().Err(err).Msg("save wizard draft")
			}
			m.Close()
			return m, m.closed(false)
		}
		if err := m.w.Back(); err == nil {
			m = m.enterStep()
		}
		return m, nil
	}

	switch step {
	case wizard.StepTaggingOptions:
		return m.updateTagging(k)
	case wizard.StepRobotAccount:
		return m.updateRobot(k)
	case wizard.StepReview:
		if k.String() == "enter" {
			return m.submit()
		}
		return m, nil
	}

	if k.String() == "enter" {
		return m.next()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	m.touched = true
	m.setText(step, m.input.Value())
	return m, cmd
}

func (m WizardModel) setText(step wizard.Step, s string) {
	var err error
	switch step {
	case wizard.StepRepoURL:
		err = m.w.SetRepoURL(s)
	case wizard.StepDockerfilePath:
		err = m.w.SetDockerfilePath(s)
	case wizard.StepContextPath:
		err = m.w.SetContextPath(s)
	case wizard.StepTaggingOptions:
		err = m.w.SetBranchTagRegex(s)
	}
	if err != nil {
		log.Debug().Err(err).Str("step", step.String()).Msg("wizard edit rejected")
	}
}

func (m WizardModel) next() (WizardModel, tea.Cmd) {
	m.touched = true
	if err := m.w.Next(); err != nil {
		return m, nil
	}
	return m.enterStep(), nil
}

func (m WizardModel) updateTagging(k tea.KeyMsg) (WizardModel, tea.Cmd) {
	cfg := m.w.Config()
	switch k.String() {
	case "tab", "down":
		return m.focusTagging(m.focus + 1), nil
	case "shift+tab", "up":
		return m.focusTagging(m.focus - 1), nil
	case "ctrl+d":
		if n := len(cfg.TagTemplates); n > 0 {
			_ = m.w.RemoveTagTemplate(cfg.TagTemplates[n-1])
			m.touched = true
		}
		return m, nil
	case " ":
		switch m.focus {
		case fieldLatest:
			_ = m.w.SetTagWithLatest(!cfg.LatestForDefaultBranch)
			m.touched = true
			return m, nil
		case fieldBranchTag:
			_ = m.w.SetTagWithBranchOrTag(!cfg.DefaultTagFromRef)
			m.touched = true
			return m, nil
		}
	case "enter":
		if m.focus == fieldTemplate && strings.TrimSpace(m.tmpl.Value()) != "" {
			_ = m.w.AddTagTemplate(strings.TrimSpace(m.tmpl.Value()))
			m.tmpl.SetValue("")
			m.touched = true
			return m, nil
		}
		return m.next()
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldRegex:
		m.input, cmd = m.input.Update(k)
		m.touched = true
		m.setText(wizard.StepTaggingOptions, m.input.Value())
	case fieldTemplate:
		m.tmpl, cmd = m.tmpl.Update(k)
	}
	return m, cmd
}

func (m WizardModel) updateRobot(k tea.KeyMsg) (WizardModel, tea.Cmd) {
	switch k.String() {
	case "up", "k":
		if m.robotCursor > 0 {
			m.robotCursor--
		}
	case "down", "j":
		if m.robotCursor < len(m.robots) {
			m.robotCursor++
		}
	case "enter":
		name := ""
		if m.robotCursor > 0 {
			name = m.robots[m.robotCursor-1].Name
		}
		if err := m.w.SelectRobot(name); err != nil {
			return m, nil
		}
		return m.next()
	}
	return m, nil
}

// submit analyzes the configuration, or activates it once analyzed. Both
// writes run detached from the view: closing the wizard drops the result
// but not the request.
func (m WizardModel) submit() (WizardModel, tea.Cmd) {
	w := m.w
	ctx := context.WithoutCancel(m.ctx)
	if w.Analysis() == nil {
		cmd := func() tea.Msg {
			a, err := w.Submit(ctx)
			return wizardAnalyzedMsg{analysis: a, err: err}
		}
		return m, tea.Batch(cmd, m.spin.Tick)
	}
	cmd := func() tea.Msg {
		t, err := w.Confirm(ctx)
		return wizardActivatedMsg{trigger: t, err: err}
	}
	return m, tea.Batch(cmd, m.spin.Tick)
}

// Capturing is always true: the wizard is modal.
func (m WizardModel) Capturing() bool { return true }

func (m WizardModel) View() string {
	theme := styles.DefaultTheme()
	step := m.w.Step()

	var body string
	switch step {
	case wizard.StepActivated:
		body = m.viewActivated(theme)
	case wizard.StepFailed, wizard.StepClosed:
		body = theme.TitleMuted.Render("Trigger setup was abandoned. Press enter to close.")
	default:
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewProgress(theme), "", m.viewStep(theme))
	}

	if banner := m.w.Banner(); banner != "" && !step.Terminal() {
		body = lipgloss.JoinVertical(lipgloss.Left, theme.ErrorText.Render(styles.IconError+" "+banner), "", body)
	}

	return widgets.NewBox("Set up build trigger").
		WithTitleRight(m.w.Repo().String()).
		WithContent(body).
		WithSize(m.width, 0).
		Render()
}

func (m WizardModel) viewProgress(theme styles.Theme) string {
	step := m.w.Step()
	var parts []string
	for i, s := range wizard.FormSteps {
		icon := styles.StepIcon(s < step, s == step)
		label := s.Title()
		if s == step {
			label = theme.Title.Render(label)
		} else {
			label = theme.TitleMuted.Render(label)
		}
		parts = append(parts, fmt.Sprintf("%s %d. %s", theme.IconStyle(icon).Render(icon), i+1, label))
	}
	n := len(wizard.FormSteps)
	bar := widgets.StepProgress(int(step), n).
		WithWidth(30).
		WithStyle(lipgloss.NewStyle().Foreground(theme.Primary)).
		WithShowText(false).
		Render()
	counter := theme.TitleMuted.Render(fmt.Sprintf("step %d of %d", min(int(step)+1, n), n))
	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(parts, "  "), bar+" "+counter)
}

func (m WizardModel) validationLine(theme styles.Theme) string {
	if !m.touched {
		return ""
	}
	// a missing required value has no message
	verr := m.w.Validate()
	if verr == nil || verr.Message == "" {
		return ""
	}
	return theme.ErrorText.Render(verr.Message)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m WizardModel) viewStep(theme styles.Theme) string {
	step := m.w.Step()
	cfg := m.w.Config()
	hints := "[enter] next  [esc] back  [ctrl+x] abandon"
	lines := []string{theme.Title.Render(step.Title())}

	switch step {
	case wizard.StepRepoURL:
		hints = "[enter] next  [esc] close (saves draft)  [ctrl+x] abandon"
		lines = append(lines, "Enter the URL of the git repository to build from.", m.input.View())
	case wizard.StepTaggingOptions:
		cursor := func(f taggingField) string {
			if m.focus == f {
				return theme.KeybindKey.Render("> ")
			}
			return "  "
		}
		templates := theme.TitleMuted.Render(wizard.MsgNoTagTemplates)
		if len(cfg.TagTemplates) > 0 {
			templates = strings.Join(cfg.TagTemplates, ", ")
		}
		lines = append(lines,
			cursor(fieldLatest)+checkbox(cfg.LatestForDefaultBranch)+" Tag manifest with latest if default branch",
			cursor(fieldBranchTag)+checkbox(cfg.DefaultTagFromRef)+" Tag manifest with the branch or tag name",
			cursor(fieldRegex)+"Branch/tag regex (empty builds all):",
			"  "+m.input.View(),
			cursor(fieldTemplate)+"Tag templates: "+templates,
			"  "+m.tmpl.View(),
		)
		hints = "[tab] field  [space] toggle  [enter] add template / next  [ctrl+d] drop last template  [esc] back"
	case wizard.StepDockerfilePath:
		lines = append(lines, "Path of the Dockerfile in the repository, e.g. /Dockerfile.", m.input.View())
	case wizard.StepContextPath:
		lines = append(lines, "Directory to use as the build context, e.g. /.", m.input.View())
	case wizard.StepRobotAccount:
		lines = append(lines, m.viewRobots(theme))
	case wizard.StepReview:
		lines = append(lines, m.viewReview(theme))
		hints = "[enter] analyze"
		if m.w.Analysis() != nil {
			hints = "[enter] activate trigger"
		}
		hints += "  [esc] back  [ctrl+x] abandon"
	}

	if v := m.validationLine(theme); v != "" {
		lines = append(lines, v)
	}
	if m.w.Busy() {
		lines = append(lines, m.spin.View()+" working...")
	}
	lines = append(lines, "", theme.Keybind.Render(hints))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m WizardModel) viewRobots(theme styles.Theme) string {
	if m.robotsErr != "" && len(m.robots) == 0 {
		return theme.Notice.Render("Could not list robot accounts: "+m.robotsErr) + "\n" +
			theme.KeybindKey.Render("> ") + triggers.NoRobotText
	}
	items := make([]string, 0, len(m.robots)+1)
	for i := 0; i <= len(m.robots); i++ {
		name, note := triggers.NoRobotText, ""
		if i > 0 {
			name, note = m.robots[i-1].Name, m.robots[i-1].Note
		}
		prefix := "  "
		if i == m.robotCursor {
			prefix = theme.KeybindKey.Render("> ")
		}
		line := prefix + name
		if note != "" {
			line += "  " + theme.TitleMuted.Render(note)
		}
		items = append(items, line)
	}
	return strings.Join(items, "\n")
}

func (m WizardModel) viewReview(theme styles.Theme) string {
	var lines []string
	for _, r := range m.w.Summary() {
		lines = append(lines, theme.TitleMuted.Render(fmt.Sprintf("%-44s", r.Label+":"))+" "+r.Value)
	}
	if len(m.preview) > 0 {
		lines = append(lines, "", theme.Title.Render("Tag preview (sample push to main)"))
		for _, p := range m.preview {
			if p.Err != nil {
				lines = append(lines, fmt.Sprintf("  %s -> %s", p.Template, theme.ErrorText.Render(p.Err.Error())))
				continue
			}
			lines = append(lines, fmt.Sprintf("  %s -> %s", p.Template, p.Tag))
		}
	}
	if a := m.w.Analysis(); a != nil {
		status := a.Status
		if a.Message != "" {
			status += ": " + a.Message
		}
		lines = append(lines, "", theme.Notice.Render("Analysis "+status))
	}
	return strings.Join(lines, "\n")
}

func (m WizardModel) viewActivated(theme styles.Theme) string {
	act, ok := m.w.Activation()
	if !ok {
		return ""
	}
	lines := []string{
		theme.StatusRunning.Render(styles.IconSuccess + " " + act.Message),
		"",
		renderCredentials(act.Credentials, theme),
		"",
		theme.TitleMuted.Render(act.Note),
		"",
		theme.Keybind.Render("[enter] close"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
