package wizard

import (
	"github.com/pkg/errors"
)

type Step int

const (
	StepRepoURL Step = iota
	StepTaggingOptions
	StepDockerfilePath
	StepContextPath
	StepRobotAccount
	StepReview
	StepActivated
	StepFailed
	StepClosed
)

var stepNames = map[Step]string{
	StepRepoURL:        "repo-url",
	StepTaggingOptions: "tagging-options",
	StepDockerfilePath: "dockerfile-path",
	StepContextPath:    "context-path",
	StepRobotAccount:   "robot-account",
	StepReview:         "review",
	StepActivated:      "activated",
	StepFailed:         "failed",
	StepClosed:         "closed",
}

var stepTitles = map[Step]string{
	StepRepoURL:        "Repository URL",
	StepTaggingOptions: "Tagging Options",
	StepDockerfilePath: "Dockerfile Path",
	StepContextPath:    "Context Path",
	StepRobotAccount:   "Robot Account",
	StepReview:         "Review and Submit",
	StepActivated:      "Trigger Activated",
	StepFailed:         "Setup Abandoned",
	StepClosed:         "Closed",
}

// FormSteps are the user-facing steps in order.
var FormSteps = []Step{StepRepoURL, StepTaggingOptions, StepDockerfilePath, StepContextPath, StepRobotAccount, StepReview}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Step) Title() string { return stepTitles[s] }

func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown wizard step %q", name)
}

// Terminal steps accept no further edits.
func (s Step) Terminal() bool {
	return s == StepActivated || s == StepFailed || s == StepClosed
}

type Event string

const (
	EventNext           Event = "next"
	EventBack           Event = "back"
	EventSubmit         Event = "submit"
	EventAnalyzeOK      Event = "analyze-ok"
	EventAnalyzeFailed  Event = "analyze-failed"
	EventConfirm        Event = "confirm"
	EventActivateOK     Event = "activate-ok"
	EventActivateFailed Event = "activate-failed"
	EventAbort          Event = "abort"
	EventDismiss        Event = "dismiss"
)

var ErrIllegalTransition = errors.New("illegal wizard transition")

type transition struct {
	from Step
	on   Event
}

// transitions is the whole state machine. Submit and Confirm keep the wizard
// on Review while the request runs; only the result events move it.
var transitions = map[transition]Step{
	{StepRepoURL, EventNext}:        StepTaggingOptions,
	{StepTaggingOptions, EventNext}: StepDockerfilePath,
	{StepDockerfilePath, EventNext}: StepContextPath,
	{StepContextPath, EventNext}:    StepRobotAccount,
	{StepRobotAccount, EventNext}:   StepReview,

	{StepTaggingOptions, EventBack}: StepRepoURL,
	{StepDockerfilePath, EventBack}: StepTaggingOptions,
	{StepContextPath, EventBack}:    StepDockerfilePath,
	{StepRobotAccount, EventBack}:   StepContextPath,
	{StepReview, EventBack}:         StepRobotAccount,

	{StepReview, EventSubmit}:         StepReview,
	{StepReview, EventAnalyzeOK}:      StepReview,
	{StepReview, EventAnalyzeFailed}:  StepReview,
	{StepReview, EventConfirm}:        StepReview,
	{StepReview, EventActivateOK}:     StepActivated,
	{StepReview, EventActivateFailed}: StepReview,

	{StepRepoURL, EventAbort}:        StepFailed,
	{StepTaggingOptions, EventAbort}: StepFailed,
	{StepDockerfilePath, EventAbort}: StepFailed,
	{StepContextPath, EventAbort}:    StepFailed,
	{StepRobotAccount, EventAbort}:   StepFailed,
	{StepReview, EventAbort}:         StepFailed,

	{StepActivated, EventDismiss}: StepClosed,
	{StepFailed, EventDismiss}:     StepClosed,
}

// Transition looks up the next step for an event.
func Transition(from Step, on Event) (Step, error) {
	to, ok := transitions[transition{from, on}]
	if !ok {
		return from, errors.Wrapf(ErrIllegalTransition, "%s on %s", on, from)
	}
	return to, nil
}
