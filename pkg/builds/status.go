package builds

import (
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/pkg/errors"
)

var ErrUnknownPhase = errors.New("unknown build phase")

// internalerror is the one phase without a hyphen; the registry API spells
// it that way and the label is the only place it gets a space.
var phaseLabels = map[api.Phase]string{
	api.PhaseError:          "error",
	api.PhaseInternalError:  "internal error",
	api.PhaseBuildScheduled: "build-scheduled",
	api.PhaseUnpacking:      "unpacking",
	api.PhasePulling:        "pulling",
	api.PhaseBuilding:       "building",
	api.PhasePushing:        "pushing",
	api.PhaseWaiting:        "waiting",
	api.PhaseComplete:       "complete",
	api.PhaseCancelled:      "cancelled",
	api.PhaseExpired:        "expired",
}

// StatusLabel maps a build phase to its display label.
func StatusLabel(p api.Phase) (string, error) {
	label, ok := phaseLabels[p]
	if !ok {
		return "", errors.Wrapf(ErrUnknownPhase, "%q", string(p))
	}
	return label, nil
}

// Terminal reports whether a build in phase p will not change phase again.
func Terminal(p api.Phase) bool {
	switch p {
	case api.PhaseError, api.PhaseInternalError, api.PhaseComplete, api.PhaseCancelled, api.PhaseExpired:
		return true
	}
	return false
}
