package wizard

import (
	"strings"

	"github.com/go-go-golems/registryctl/pkg/api"
)

type SummaryRow struct {
	ID    string
	Label string
	Value string
}

func enabledText(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// Summary lists what will be sent on activation, in review order.
func Summary(cfg api.BuildTriggerConfig, robot string) []SummaryRow {
	templates := MsgNoTagTemplates
	if len(cfg.TagTemplates) > 0 {
		templates = strings.Join(cfg.TagTemplates, ", ")
	}
	regex := cfg.BranchTagRegex
	if regex == "" {
		regex = "All"
	}
	if robot == "" {
		robot = "(None)"
	}
	return []SummaryRow{
		{ID: "repo-url", Label: "Repository URL", Value: cfg.BuildSource},
		{ID: "tag-templates", Label: "Tag templates", Value: templates},
		{ID: "tag-with-branch-or-tag", Label: "Tag manifest with branch or tag name", Value: enabledText(cfg.DefaultTagFromRef)},
		{ID: "tag-with-latest", Label: "Tag manifest with latest if default branch", Value: enabledText(cfg.LatestForDefaultBranch)},
		{ID: "branch-tag-regex", Label: "Branch/tag regex", Value: regex},
		{ID: "dockerfile-path", Label: "Dockerfile path", Value: cfg.DockerfilePath},
		{ID: "context-path", Label: "Context path", Value: cfg.Context},
		{ID: "robot-account", Label: "Robot account", Value: robot},
	}
}

func (w *Wizard) Summary() []SummaryRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Summary(w.cfg, w.robot)
}

// Restore loads previously collected values and moves to step, stopping
// early at the first step whose values do not validate. Steps are never
// skipped.
func (w *Wizard) Restore(cfg api.BuildTriggerConfig, robot string, step Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if w.step != StepRepoURL {
		return ErrNotEditing
	}
	w.cfg = copyConfig(cfg)
	w.cfg.TagTemplates = normalizeTemplates(cfg.TagTemplates)
	w.robot = robot
	for w.step < step && w.step < StepReview {
		if validateStep(w.step, w.cfg) != nil {
			break
		}
		if err := w.fire(EventNext); err != nil {
			return err
		}
	}
	return nil
}
