package tui

import (
	"context"
	"fmt"
)

// RegisterDomainToUITransformer republishes domain events as UI messages and
// derives event log lines from them.
func RegisterDomainToUITransformer(bus *Bus) {
	toUI := func(typ string, payload any) error {
		return publish(bus.Publisher, TopicUIMessages, typ, payload)
	}
	logLine := func(e EventLogEntry) error {
		if e.Level == "" {
			e.Level = LogLevelInfo
		}
		return toUI(UITypeEventAppend, e)
	}
	// Successful polls are not echoed to the log, only failures.
	failure := func(source, errText string, e EventLogEntry) error {
		if errText == "" {
			return nil
		}
		e.Source, e.Level, e.Text = source, LogLevelError, source+": "+errText
		return logLine(e)
	}

	bus.Handle("registry-domain-to-ui", TopicRegistryEvents, func(_ context.Context, env Envelope) error {
		switch env.Type {
		case DomainTypeBuildsSnapshot:
			snap, err := payloadOf[BuildsSnapshot](env)
			if err != nil {
				return err
			}
			if err := toUI(UITypeBuildsSnapshot, snap); err != nil {
				return err
			}
			return failure("builds", snap.Error, EventLogEntry{At: snap.At})

		case DomainTypeTriggersSnapshot:
			snap, err := payloadOf[TriggersSnapshot](env)
			if err != nil {
				return err
			}
			if err := toUI(UITypeTriggersSnapshot, snap); err != nil {
				return err
			}
			return failure("triggers", snap.Error, EventLogEntry{At: snap.At})

		case DomainTypeTriggerActionResult:
			res, err := payloadOf[TriggerActionResult](env)
			if err != nil {
				return err
			}
			if err := toUI(UITypeTriggerActionResult, res); err != nil {
				return err
			}
			e := EventLogEntry{At: res.At, Source: "triggers", Text: fmt.Sprintf("%s: %s", res.Trigger, res.Notice)}
			if res.Error != "" {
				e.Level, e.Text = LogLevelError, fmt.Sprintf("%s: %s", res.Trigger, res.Error)
			}
			return logLine(e)

		case DomainTypeActionLog:
			ev, err := payloadOf[ActionLog](env)
			if err != nil {
				return err
			}
			return logLine(EventLogEntry{At: ev.At, Source: "system", Level: ev.Level, Text: ev.Text})
		}
		return nil
	})
}
