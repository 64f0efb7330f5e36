package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/pkg/errors"
)

type ActionKind string

const (
	ActionRefresh         ActionKind = "refresh"
	ActionRefreshBuilds   ActionKind = "refresh-builds"
	ActionRefreshTriggers ActionKind = "refresh-triggers"
	ActionSetWindow       ActionKind = "set-window"
	ActionTrigger         ActionKind = "trigger"
)

type ActionRequest struct {
	Kind ActionKind `json:"kind"`
	At   time.Time  `json:"at"`
	// Trigger and TriggerAction are set for ActionTrigger.
	Trigger       string          `json:"trigger,omitempty"`
	TriggerAction triggers.Action `json:"trigger_action,omitempty"`
	Window        builds.Window   `json:"window,omitempty"`
}

func PublishAction(pub message.Publisher, req ActionRequest) error {
	switch req.Kind {
	case ActionRefresh, ActionRefreshBuilds, ActionRefreshTriggers, ActionSetWindow, ActionTrigger:
	case "":
		return errors.New("missing action kind")
	default:
		return errors.Errorf("unknown action kind %q", req.Kind)
	}
	if req.Kind == ActionTrigger && (req.Trigger == "" || req.TriggerAction == "") {
		return errors.New("trigger action needs a trigger and an action")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return publish(pub, TopicUIActions, UITypeActionRequest, req)
}
