package styles

import "github.com/go-go-golems/registryctl/pkg/api"

const (
	IconSuccess  = "✓"
	IconError    = "✗"
	IconWarning  = "⚠"
	IconInfo     = "ℹ"
	IconRunning  = "▶"
	IconPending  = "○"
	IconSkipped  = "⊘"
	IconBullet   = "•"
	IconExpand   = "▸"
	IconCollapse = "▾"
)

// PhaseIcon maps a build phase onto the status icons.
func PhaseIcon(p api.Phase) string {
	switch p {
	case api.PhaseComplete:
		return IconSuccess
	case api.PhaseError, api.PhaseInternalError:
		return IconError
	case api.PhaseCancelled, api.PhaseExpired:
		return IconSkipped
	case api.PhaseBuildScheduled, api.PhaseWaiting:
		return IconPending
	default:
		return IconRunning
	}
}

// TriggerIcon takes a trigger row state (enabled, disabled, incomplete).
func TriggerIcon(state string) string {
	switch state {
	case "enabled":
		return IconSuccess
	case "disabled":
		return IconSkipped
	case "incomplete":
		return IconWarning
	default:
		return IconBullet
	}
}

func LogLevelIcon(level string) string {
	switch level {
	case "error", "ERROR":
		return IconError
	case "warn", "WARN", "warning", "WARNING":
		return IconWarning
	case "info", "INFO":
		return IconInfo
	default:
		return IconBullet
	}
}

// StepIcon marks wizard steps in the progress list.
func StepIcon(done, current bool) string {
	switch {
	case done:
		return IconSuccess
	case current:
		return IconRunning
	default:
		return IconPending
	}
}
