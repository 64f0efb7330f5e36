package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

var _ Sender = (*tea.Program)(nil)

func forwardAs[T any](p Sender, env Envelope, wrap func(T) tea.Msg) error {
	v, err := payloadOf[T](env)
	if err != nil {
		return err
	}
	p.Send(wrap(v))
	return nil
}

// RegisterUIForwarder hands UI messages to the bubbletea program.
func RegisterUIForwarder(bus *Bus, p Sender) {
	bus.Handle("registry-ui-forward", TopicUIMessages, func(_ context.Context, env Envelope) error {
		switch env.Type {
		case UITypeBuildsSnapshot:
			return forwardAs(p, env, func(s BuildsSnapshot) tea.Msg { return BuildsSnapshotMsg{Snapshot: s} })
		case UITypeTriggersSnapshot:
			return forwardAs(p, env, func(s TriggersSnapshot) tea.Msg { return TriggersSnapshotMsg{Snapshot: s} })
		case UITypeTriggerActionResult:
			return forwardAs(p, env, func(r TriggerActionResult) tea.Msg { return TriggerActionResultMsg{Result: r} })
		case UITypeEventAppend:
			return forwardAs(p, env, func(e EventLogEntry) tea.Msg { return EventLogAppendMsg{Entry: e} })
		}
		return nil
	})
}
