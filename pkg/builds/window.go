package builds

import (
	"time"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/pkg/errors"
)

type Window string

const (
	WindowAll     Window = "all"
	Window48Hours Window = "48h"
	Window30Days  Window = "30d"
)

// FilteredBuildLimit is the page size used once a time window is applied.
const FilteredBuildLimit = 100

type WindowPreset struct {
	Window   Window
	Label    string
	Duration time.Duration
}

var Presets = []WindowPreset{
	{Window: WindowAll, Label: "All"},
	{Window: Window48Hours, Label: "Last 48 hours", Duration: 48 * time.Hour},
	{Window: Window30Days, Label: "Last 30 days", Duration: 30 * 24 * time.Hour},
}

func ParseWindow(s string) (Window, error) {
	for _, p := range Presets {
		if string(p.Window) == s {
			return p.Window, nil
		}
	}
	return "", errors.Errorf("unknown build window %q (expected all, 48h or 30d)", s)
}

func (w Window) Preset() WindowPreset {
	for _, p := range Presets {
		if p.Window == w {
			return p
		}
	}
	return Presets[0]
}

func (w Window) Label() string { return w.Preset().Label }

// Query computes the list options for the window as seen at now. The since
// timestamp is truncated to whole seconds, matching the API's UNIX-seconds
// parameter.
func (w Window) Query(now time.Time) api.ListBuildsOptions {
	p := w.Preset()
	if p.Duration == 0 {
		return api.ListBuildsOptions{Limit: api.DefaultBuildLimit}
	}
	since := now.Add(-p.Duration).Truncate(time.Second)
	return api.ListBuildsOptions{Limit: FilteredBuildLimit, Since: &since}
}

// Next cycles through the presets in order.
func (w Window) Next() Window {
	for i, p := range Presets {
		if p.Window == w {
			return Presets[(i+1)%len(Presets)].Window
		}
	}
	return WindowAll
}
