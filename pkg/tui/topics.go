package tui

const (
	TopicRegistryEvents = "registry.events"
	TopicUIMessages     = "registry.ui.msgs"
	TopicUIActions      = "registry.ui.actions"
)

const (
	DomainTypeBuildsSnapshot      = "builds.snapshot"
	DomainTypeTriggersSnapshot    = "triggers.snapshot"
	DomainTypeTriggerActionResult = "trigger.action.result"
	DomainTypeActionLog           = "action.log"
)

const (
	UITypeBuildsSnapshot      = "tui.builds.snapshot"
	UITypeTriggersSnapshot    = "tui.triggers.snapshot"
	UITypeTriggerActionResult = "tui.trigger.action.result"
	UITypeEventAppend         = "tui.event.append"
	UITypeActionRequest       = "tui.action.request"
)
