package draft

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/wizard"
	"github.com/pkg/errors"
)

const (
	StateDirName  = ".registryctl"
	DraftsDirName = "drafts"
)

// Draft is a setup wizard interrupted before activation.
type Draft struct {
	Repository string    `json:"repository"`
	TriggerID  string    `json:"trigger_id"`
	Step       string    `json:"step"`
	SavedAt    time.Time `json:"saved_at"`

	BuildSource            string   `json:"build_source,omitempty"`
	DockerfilePath         string   `json:"dockerfile_path,omitempty"`
	Context                string   `json:"context,omitempty"`
	BranchTagRegex         string   `json:"branchtag_regex,omitempty"`
	DefaultTagFromRef      bool     `json:"default_tag_from_ref,omitempty"`
	LatestForDefaultBranch bool     `json:"latest_for_default_branch,omitempty"`
	TagTemplates           []string `json:"tag_templates,omitempty"`
	PullRobot              string   `json:"pull_robot,omitempty"`
}

func DraftsDir(root string) string {
	return filepath.Join(root, StateDirName, DraftsDirName)
}

func DraftPath(root, triggerID string) string {
	return filepath.Join(DraftsDir(root), triggerID+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return errors.Errorf("invalid trigger id %q", id)
	}
	return nil
}

// FromWizard captures the wizard's current values. Terminal wizards have
// nothing worth resuming.
func FromWizard(w *wizard.Wizard) (*Draft, bool) {
	step := w.Step()
	if step.Terminal() {
		return nil, false
	}
	cfg := w.Config()
	return &Draft{
		Repository:             w.Repo().String(),
		TriggerID:              w.TriggerID(),
		Step:                   step.String(),
		SavedAt:                time.Now().UTC(),
		BuildSource:            cfg.BuildSource,
		DockerfilePath:         cfg.DockerfilePath,
		Context:                cfg.Context,
		BranchTagRegex:         cfg.BranchTagRegex,
		DefaultTagFromRef:      cfg.DefaultTagFromRef,
		LatestForDefaultBranch: cfg.LatestForDefaultBranch,
		TagTemplates:           cfg.TagTemplates,
		PullRobot:              w.Robot(),
	}, true
}

func (d *Draft) Config() api.BuildTriggerConfig {
	return api.BuildTriggerConfig{
		BuildSource:            d.BuildSource,
		DockerfilePath:         d.DockerfilePath,
		Context:                d.Context,
		BranchTagRegex:         d.BranchTagRegex,
		DefaultTagFromRef:      d.DefaultTagFromRef,
		LatestForDefaultBranch: d.LatestForDefaultBranch,
		TagTemplates:           append([]string{}, d.TagTemplates...),
	}
}

// Apply restores the draft into a fresh wizard for the same trigger.
func (d *Draft) Apply(w *wizard.Wizard) error {
	if d.TriggerID != w.TriggerID() {
		return errors.Errorf("draft is for trigger %s, not %s", d.TriggerID, w.TriggerID())
	}
	step, err := wizard.ParseStep(d.Step)
	if err != nil {
		return err
	}
	return w.Restore(d.Config(), d.PullRobot, step)
}

func Load(root, triggerID string) (*Draft, error) {
	if err := validID(triggerID); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(DraftPath(root, triggerID))
	if err != nil {
		return nil, errors.Wrap(err, "read draft")
	}
	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, errors.Wrap(err, "parse draft json")
	}
	return &d, nil
}

// LoadOptional returns nil without error when no draft exists.
func LoadOptional(root, triggerID string) (*Draft, error) {
	d, err := Load(root, triggerID)
	if err != nil && os.IsNotExist(errors.Cause(err)) {
		return nil, nil
	}
	return d, err
}

func Save(root string, d *Draft) error {
	if d == nil {
		return errors.New("nil draft")
	}
	if err := validID(d.TriggerID); err != nil {
		return err
	}
	if err := os.MkdirAll(DraftsDir(root), 0o755); err != nil {
		return errors.Wrap(err, "mkdir drafts dir")
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal draft")
	}
	if err := os.WriteFile(DraftPath(root, d.TriggerID), b, 0o600); err != nil {
		return errors.Wrap(err, "write draft")
	}
	return nil
}

func Remove(root, triggerID string) error {
	if err := validID(triggerID); err != nil {
		return err
	}
	if err := os.Remove(DraftPath(root, triggerID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove draft")
	}
	return nil
}
