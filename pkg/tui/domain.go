package tui

import (
	"time"

	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/triggers"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type EventLogEntry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source,omitempty"`
	Level  LogLevel  `json:"level,omitempty"`
	Text   string    `json:"text"`
}

type ActionLog struct {
	At    time.Time `json:"at"`
	Level LogLevel  `json:"level,omitempty"`
	Text  string    `json:"text"`
}

// BuildsSnapshot is one fetch of the build list. Error is set instead of
// Builds when the fetch failed.
type BuildsSnapshot struct {
	At     time.Time     `json:"at"`
	Window builds.Window `json:"window"`
	Builds []api.Build   `json:"builds,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type TriggersSnapshot struct {
	At       time.Time     `json:"at"`
	Triggers []api.Trigger `json:"triggers,omitempty"`
	Role     access.Role   `json:"role"`
	Error    string        `json:"error,omitempty"`
}

type TriggerActionResult struct {
	At      time.Time       `json:"at"`
	Trigger string          `json:"trigger"`
	Action  triggers.Action `json:"action"`
	Notice  string          `json:"notice,omitempty"`
	Error   string          `json:"error,omitempty"`
}
