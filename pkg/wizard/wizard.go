package wizard

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy       = errors.New("a request for this trigger is already in flight")
	ErrNotEditing = errors.New("wizard is no longer editable")
	ErrNoAnalysis = errors.New("trigger has not been analyzed yet")
)

// Client is what the wizard needs from the registry.
type Client interface {
	AnalyzeTrigger(ctx context.Context, repo api.RepoRef, uuid string, cfg api.BuildTriggerConfig) (*api.Analysis, error)
	ActivateTrigger(ctx context.Context, repo api.RepoRef, uuid string, cfg api.BuildTriggerConfig, robot string) (*api.Trigger, error)
	ListRobots(ctx context.Context, org string) ([]api.Entity, error)
}

var _ Client = (*api.Client)(nil)

const ReadAccessNote = "Read access will be added if selected"

type RobotOption struct {
	Name string
	Note string
}

// Wizard drives the setup of one build trigger. It owns the configuration
// until activation succeeds. All methods are safe for concurrent use; network
// calls run without the lock held.
type Wizard struct {
	client    Client
	repo      api.RepoRef
	triggerID string

	mu       sync.Mutex
	step     Step
	cfg      api.BuildTriggerConfig
	robot    string
	robots   []api.Entity
	busy     bool
	analysis *api.Analysis
	result   *api.Trigger
	// banner is the last request failure shown to the user; cleared on the
	// next attempt.
	banner string
}

func New(client Client, repo api.RepoRef, triggerID string) *Wizard {
	return &Wizard{client: client, repo: repo, triggerID: triggerID, step: StepRepoURL}
}

func (w *Wizard) TriggerID() string { return w.triggerID }
func (w *Wizard) Repo() api.RepoRef { return w.repo }

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Config returns a copy of the configuration collected so far.
func (w *Wizard) Config() api.BuildTriggerConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyConfig(w.cfg)
}

func (w *Wizard) Robot() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.robot
}

func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

func (w *Wizard) Banner() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.banner
}

func (w *Wizard) Analysis() *api.Analysis {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.analysis
}

func (w *Wizard) Result() *api.Trigger {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

func copyConfig(c api.BuildTriggerConfig) api.BuildTriggerConfig {
	c.TagTemplates = append([]string{}, c.TagTemplates...)
	return c
}

func (w *Wizard) fire(ev Event) error {
	to, err := Transition(w.step, ev)
	if err != nil {
		return err
	}
	log.Debug().Str("trigger", w.triggerID).Str("from", w.step.String()).Str("to", to.String()).Str("event", string(ev)).Msg("wizard transition")
	w.step = to
	return nil
}

func (w *Wizard) edit(fn func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrNotEditing
	}
	if w.busy {
		return ErrBusy
	}
	fn()
	// an edited config invalidates an earlier analysis
	w.analysis = nil
	return nil
}

func (w *Wizard) SetRepoURL(s string) error {
	return w.edit(func() { w.cfg.BuildSource = strings.TrimSpace(s) })
}

func (w *Wizard) SetDockerfilePath(s string) error {
	return w.edit(func() { w.cfg.DockerfilePath = s })
}

func (w *Wizard) SetContextPath(s string) error {
	return w.edit(func() { w.cfg.Context = s })
}

func (w *Wizard) SetTagWithLatest(v bool) error {
	return w.edit(func() { w.cfg.LatestForDefaultBranch = v })
}

func (w *Wizard) SetTagWithBranchOrTag(v bool) error {
	return w.edit(func() { w.cfg.DefaultTagFromRef = v })
}

func (w *Wizard) SetBranchTagRegex(s string) error {
	return w.edit(func() { w.cfg.BranchTagRegex = s })
}

// normalizeTemplates trims templates, drops blank ones and removes
// duplicates, keeping first occurrences in order.
func normalizeTemplates(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// AddTagTemplate appends a template unless it is already present.
func (w *Wizard) AddTagTemplate(tmpl string) error {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return &ValidationError{Step: StepTaggingOptions, Field: "tag-template", Message: "Tag template cannot be empty."}
	}
	return w.edit(func() {
		w.cfg.TagTemplates = normalizeTemplates(append(w.cfg.TagTemplates, tmpl))
	})
}

func (w *Wizard) RemoveTagTemplate(tmpl string) error {
	return w.edit(func() {
		out := w.cfg.TagTemplates[:0:0]
		for _, t := range w.cfg.TagTemplates {
			if t != tmpl {
				out = append(out, t)
			}
		}
		w.cfg.TagTemplates = out
	})
}

// SelectRobot picks the pull robot. An empty name clears the selection.
func (w *Wizard) SelectRobot(name string) error {
	return w.edit(func() { w.robot = name })
}

// Validate reports the current step's validation failure, or nil.
func (w *Wizard) Validate() *ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validateStep(w.step, w.cfg)
}

func (w *Wizard) CanNext() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.busy && w.step != StepReview && !w.step.Terminal() && validateStep(w.step, w.cfg) == nil
}

// Next advances one step when the current step validates.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if verr := validateStep(w.step, w.cfg); verr != nil {
		return verr
	}
	return w.fire(EventNext)
}

// Back returns to the previous step. Field values are kept.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	return w.fire(EventBack)
}

func (w *Wizard) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	return w.fire(EventAbort)
}

func (w *Wizard) Dismiss() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fire(EventDismiss)
}

// LoadRobots lists the robots of the repository's namespace for the robot
// step. A failure is kept as the banner; the step stays valid without a robot.
func (w *Wizard) LoadRobots(ctx context.Context) ([]RobotOption, error) {
	robots, err := w.client.ListRobots(ctx, w.repo.Namespace)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.banner = err.Error()
		return nil, err
	}
	w.robots = robots
	return robotOptions(robots), nil
}

func (w *Wizard) RobotOptions() []RobotOption {
	w.mu.Lock()
	defer w.mu.Unlock()
	return robotOptions(w.robots)
}

func robotOptions(robots []api.Entity) []RobotOption {
	out := make([]RobotOption, 0, len(robots))
	for _, r := range robots {
		o := RobotOption{Name: r.Name}
		if !r.CanRead {
			o.Note = ReadAccessNote
		}
		out = append(out, o)
	}
	return out
}

// begin marks a request in flight after firing ev. It is the only place busy
// is set, so a second submit while one runs fails with ErrBusy.
func (w *Wizard) begin(ev Event) (api.BuildTriggerConfig, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return api.BuildTriggerConfig{}, "", ErrBusy
	}
	if ev == EventConfirm && w.analysis == nil {
		return api.BuildTriggerConfig{}, "", ErrNoAnalysis
	}
	if err := w.fire(ev); err != nil {
		return api.BuildTriggerConfig{}, "", err
	}
	w.busy = true
	w.banner = ""
	return copyConfig(w.cfg), w.robot, nil
}

// Submit runs the analyze request for the reviewed configuration. The wizard
// stays on Review either way; a failure is surfaced verbatim and may be
// retried.
func (w *Wizard) Submit(ctx context.Context) (*api.Analysis, error) {
	cfg, _, err := w.begin(EventSubmit)
	if err != nil {
		return nil, err
	}

	analysis, err := w.client.AnalyzeTrigger(ctx, w.repo, w.triggerID, cfg)
	if err == nil && analysis != nil && analysis.Status == "error" {
		msg := analysis.Message
		if msg == "" {
			msg = "Could not analyze trigger"
		}
		err = errors.New(msg)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		w.banner = err.Error()
		_ = w.fire(EventAnalyzeFailed)
		log.Warn().Err(err).Str("trigger", w.triggerID).Msg("trigger analysis failed")
		return nil, err
	}
	w.analysis = analysis
	_ = w.fire(EventAnalyzeOK)
	return analysis, nil
}

// Confirm activates the trigger after a successful analysis.
func (w *Wizard) Confirm(ctx context.Context) (*api.Trigger, error) {
	cfg, robot, err := w.begin(EventConfirm)
	if err != nil {
		return nil, err
	}

	tr, err := w.client.ActivateTrigger(ctx, w.repo, w.triggerID, cfg, robot)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		aerr := &api.ActivationError{Err: err}
		w.banner = aerr.Error()
		_ = w.fire(EventActivateFailed)
		log.Warn().Err(err).Str("trigger", w.triggerID).Msg("trigger activation failed")
		return nil, aerr
	}
	w.result = tr
	_ = w.fire(EventActivateOK)
	log.Info().Str("trigger", w.triggerID).Msg("trigger activated")
	return tr, nil
}

// SubmitAndConfirm runs both phases back to back, for callers that have
// already asked the user.
func (w *Wizard) SubmitAndConfirm(ctx context.Context) (*api.Trigger, error) {
	if _, err := w.Submit(ctx); err != nil {
		return nil, err
	}
	return w.Confirm(ctx)
}

// Activation describes the Activated screen.
type Activation struct {
	Message     string
	Note        string
	Credentials triggers.CredentialsView
}

func (w *Wizard) Activation() (Activation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepActivated || w.result == nil {
		return Activation{}, false
	}
	return Activation{
		Message:     triggers.ActivatedText,
		Note:        triggers.AutoDisableNoteText,
		Credentials: triggers.Credentials(*w.result),
	}, true
}
