package triggers

import (
	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
)

type State string

const (
	StateEnabled    State = "enabled"
	StateDisabled   State = "disabled"
	StateIncomplete State = "incomplete"
)

type Action string

const (
	ActionEnable          Action = "enable"
	ActionDisable         Action = "disable"
	ActionDelete          Action = "delete"
	ActionViewCredentials Action = "view-credentials"
)

const (
	IncompleteMessage = "This build trigger has not had its setup completed."
	ReenableLabel     = "Re-enable this trigger"
	NoRegexText       = "All"
	NoRobotText       = "(None)"
)

var disabledMessages = map[api.DisabledReason]string{
	api.DisabledUserToggled:                   "This build trigger is user disabled and will not build.",
	api.DisabledSuccessiveBuildFailures:       "This build trigger was automatically disabled due to successive failures.",
	api.DisabledSuccessiveBuildInternalErrors: "This build trigger was automatically disabled due to successive internal errors.",
}

// DisabledMessage explains why a trigger is not building. Disabled triggers
// without a known reason get the user-disabled wording.
func DisabledMessage(reason api.DisabledReason) string {
	if msg, ok := disabledMessages[reason]; ok {
		return msg
	}
	return disabledMessages[api.DisabledUserToggled]
}

type Row struct {
	ID             string
	Service        api.Service
	Name           string
	DockerfilePath string
	Context        string
	BranchTagRegex string
	PullRobot      string
	TaggingOptions []string
	State          State
	// Notice is the banner shown under a disabled or incomplete trigger.
	Notice  string
	Actions []Action
}

func (r Row) Can(a Action) bool {
	for _, x := range r.Actions {
		if x == a {
			return true
		}
	}
	return false
}

func StateOf(t api.Trigger) State {
	switch {
	case !t.IsActive:
		return StateIncomplete
	case !t.Enabled:
		return StateDisabled
	}
	return StateEnabled
}

// Name is the trigger's list title, e.g. "push to GitHub repository org/repo".
// Source is the repository a trigger builds from. The configured source wins
// over the top-level one.
func Source(t api.Trigger) string {
	if t.Config != nil && t.Config.BuildSource != "" {
		return t.Config.BuildSource
	}
	return t.BuildSource
}

func Name(t api.Trigger) string {
	src := Source(t)
	svc := builds.ServiceFor(t.Service).DisplayName()
	if svc == "" {
		return "push to repository " + src
	}
	return "push to " + svc + " repository " + src
}

// TaggingOptions lists the tagging behaviors of a trigger in display order.
func TaggingOptions(cfg *api.TriggerConfig) []string {
	opts := []string{}
	if cfg == nil {
		return opts
	}
	if cfg.DefaultTagFromRef {
		opts = append(opts, "Branch/tag name")
	}
	if cfg.LatestForDefaultBranch {
		opts = append(opts, "latest if default branch")
	}
	return append(opts, cfg.TagTemplates...)
}

// Rows derives the trigger list. Actions are limited by caps; an incomplete
// trigger only ever offers Delete.
func Rows(list []api.Trigger, caps access.Set) []Row {
	rows := make([]Row, 0, len(list))
	for _, t := range list {
		r := Row{
			ID:             t.ID,
			Service:        t.Service,
			Name:           Name(t),
			BranchTagRegex: NoRegexText,
			PullRobot:      NoRobotText,
			TaggingOptions: TaggingOptions(t.Config),
			State:          StateOf(t),
		}
		if t.Config != nil {
			r.DockerfilePath = t.Config.DockerfilePath
			r.Context = t.Config.Context
			if t.Config.BranchTagRegex != "" {
				r.BranchTagRegex = t.Config.BranchTagRegex
			}
		}
		if t.PullRobot != nil && t.PullRobot.Name != "" {
			r.PullRobot = t.PullRobot.Name
		}

		switch r.State {
		case StateIncomplete:
			r.Notice = IncompleteMessage
			if caps.Has(access.DeleteTrigger) {
				r.Actions = []Action{ActionDelete}
			}
			rows = append(rows, r)
			continue
		case StateDisabled:
			r.Notice = DisabledMessage(t.DisabledReason)
			if caps.Has(access.ToggleTrigger) {
				r.Actions = append(r.Actions, ActionEnable)
			}
		case StateEnabled:
			if caps.Has(access.ToggleTrigger) {
				r.Actions = append(r.Actions, ActionDisable)
			}
		}
		if caps.Has(access.ViewCredentials) {
			r.Actions = append(r.Actions, ActionViewCredentials)
		}
		if caps.Has(access.DeleteTrigger) {
			r.Actions = append(r.Actions, ActionDelete)
		}
		rows = append(rows, r)
	}
	return rows
}
