package widgets

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
)

type Keybind struct {
	Key   string
	Label string
}

// Tab is one entry of the view switcher. Key is the number that selects it.
type Tab struct {
	Key    string
	Label  string
	Active bool
}

// Header is the top bar: app name, repository, view tabs and data freshness.
type Header struct {
	Title    string
	Repo     string
	Healthy  bool
	Tabs     []Tab
	Updated  time.Time
	Now      time.Time
	Keybinds []Keybind
	Width    int
	theme    styles.Theme
}

func NewHeader(title string) Header {
	return Header{Title: title, Healthy: true, theme: styles.DefaultTheme()}
}

// WithRepo names the repository. An unhealthy repo gets the error icon.
func (h Header) WithRepo(repo string, healthy bool) Header {
	h.Repo = repo
	h.Healthy = healthy
	return h
}

func (h Header) WithTabs(tabs []Tab) Header {
	h.Tabs = tabs
	return h
}

// WithUpdated shows how long ago the data was refreshed.
func (h Header) WithUpdated(at, now time.Time) Header {
	h.Updated = at
	h.Now = now
	return h
}

func (h Header) WithKeybinds(kb []Keybind) Header {
	h.Keybinds = kb
	return h
}

func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

func (h Header) left() string {
	theme := h.theme
	parts := []string{lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Background(theme.Primary).Padding(0, 1).Render(h.Title)}
	if h.Repo != "" {
		icon, style := styles.IconSuccess, theme.StatusRunning
		if !h.Healthy {
			icon, style = styles.IconError, theme.StatusDead
		}
		parts = append(parts, style.Render(icon)+" "+lipgloss.NewStyle().Foreground(theme.Text).Render(h.Repo))
	}
	var tabs []string
	for _, t := range h.Tabs {
		label := t.Key + " " + t.Label
		if t.Active {
			tabs = append(tabs, theme.Title.Render("["+label+"]"))
		} else {
			tabs = append(tabs, theme.TitleMuted.Render(" "+label+" "))
		}
	}
	if len(tabs) > 0 {
		parts = append(parts, strings.Join(tabs, ""))
	}
	return strings.Join(parts, "  ")
}

func (h Header) right() string {
	var parts []string
	if !h.Updated.IsZero() {
		parts = append(parts, h.theme.TitleMuted.Render("Updated "+humanize.RelTime(h.Updated, h.Now, "ago", "from now")))
	}
	if len(h.Keybinds) > 0 {
		parts = append(parts, RenderKeybinds(h.Keybinds, h.theme))
	}
	return strings.Join(parts, "  ")
}

func (h Header) Render() string {
	left, right := h.left(), h.right()
	gap := max(1, h.Width-lipgloss.Width(left)-lipgloss.Width(right))
	return lipgloss.JoinVertical(lipgloss.Left, left+strings.Repeat(" ", gap)+right, rule(h.Width, h.theme))
}

// rule is the full-width separator under the header and above the footer.
func rule(width int, theme styles.Theme) string {
	if width <= 0 {
		width = 80
	}
	return lipgloss.NewStyle().Foreground(theme.Muted).Render(strings.Repeat("━", width))
}

func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	parts := make([]string, 0, len(keybinds))
	for _, kb := range keybinds {
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]")+" "+theme.Keybind.Render(kb.Label))
	}
	return strings.Join(parts, "  ")
}
