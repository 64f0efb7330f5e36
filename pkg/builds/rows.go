package builds

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-go-golems/registryctl/pkg/api"
)

// LongMessageThreshold is the rune count past which a commit message is
// collapsed until the row is expanded.
const LongMessageThreshold = 100

const NoBuildsMessage = "No matching builds found. Please start a new build or adjust filter to view build status."

type Row struct {
	ID          string
	Phase       api.Phase
	Status      string
	Description Description
	Started     time.Time
	StartedRaw  string
	Tags        []string
}

// Rows derives the display rows for a build list. An unknown phase aborts the
// derivation rather than rendering a row with a guessed label.
func Rows(list []api.Build) ([]Row, error) {
	rows := make([]Row, 0, len(list))
	for _, b := range list {
		status, err := StatusLabel(b.Phase)
		if err != nil {
			return nil, err
		}
		r := Row{
			ID:          b.ID,
			Phase:       b.Phase,
			Status:      status,
			Description: Describe(b),
			StartedRaw:  b.Started,
			Tags:        append([]string{}, b.Tags...),
		}
		if t, err := dateparse.ParseAny(b.Started); err == nil {
			r.Started = t
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// StartedText formats the start time in loc, falling back to the raw server
// string when it could not be parsed.
func (r Row) StartedText(loc *time.Location) string {
	if r.Started.IsZero() {
		return r.StartedRaw
	}
	if loc == nil {
		loc = time.Local
	}
	return r.Started.In(loc).Format("Jan 2, 2006, 3:04 PM")
}

func (r Row) TagsText() string {
	return strings.Join(r.Tags, ", ")
}

// CollapseMessage shortens msg when it is longer than LongMessageThreshold.
// The second return value reports whether anything was cut.
func CollapseMessage(msg string) (string, bool) {
	runes := []rune(msg)
	if len(runes) <= LongMessageThreshold {
		return msg, false
	}
	return strings.TrimRight(string(runes[:LongMessageThreshold]), " ") + "...", true
}

// MessageText returns the commit message as it should be shown given the
// row's expansion state.
func (d Description) MessageText(expanded bool) string {
	if expanded {
		return d.Message
	}
	short, _ := CollapseMessage(d.Message)
	return short
}

// Expansion tracks which rows show their full commit message. It is local
// view state and never sent to the server.
type Expansion map[string]bool

func (e Expansion) Toggle(id string) {
	if e[id] {
		delete(e, id)
		return
	}
	e[id] = true
}

func (e Expansion) Expanded(id string) bool { return e[id] }
