package tui

type BuildsSnapshotMsg struct {
	Snapshot BuildsSnapshot
}

type TriggersSnapshotMsg struct {
	Snapshot TriggersSnapshot
}

type TriggerActionResultMsg struct {
	Result TriggerActionResult
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

// ActionRequestMsg asks the root model to publish a request on the bus.
type ActionRequestMsg struct {
	Request ActionRequest
}

// OpenWizardMsg switches to the setup wizard for a trigger.
type OpenWizardMsg struct {
	TriggerID string
}

// WizardClosedMsg is sent when the wizard view is left. Activated is true when
// the trigger was set up.
type WizardClosedMsg struct {
	TriggerID string
	Activated bool
}
