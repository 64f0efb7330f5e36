package tui

import (
	"time"

	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/config"
)

type RootOptions struct {
	Settings config.Settings
	// TriggerID opens the setup wizard for that trigger on start.
	TriggerID string
	// DraftRoot is the directory holding .registryctl/drafts.
	DraftRoot string
	Window    builds.Window
	Refresh   time.Duration
}
