package triggers

import (
	"context"
	"sync"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Client is the subset of the registry API the trigger list needs.
type Client interface {
	ListTriggers(ctx context.Context, repo api.RepoRef) ([]api.Trigger, error)
	ToggleTrigger(ctx context.Context, repo api.RepoRef, uuid string, enabled bool) error
	DeleteTrigger(ctx context.Context, repo api.RepoRef, uuid string) error
}

var _ Client = (*api.Client)(nil)

type Confirmation struct {
	Title  string
	Prompt string
	Button string
}

var confirmations = map[Action]Confirmation{
	ActionEnable: {
		Title:  "Enable Build Trigger",
		Prompt: "Are you sure you want to enable this build trigger?",
		Button: "Enable Build Trigger",
	},
	ActionDisable: {
		Title:  "Disable Build Trigger",
		Prompt: "Are you sure you want to disable this build trigger?",
		Button: "Disable Build Trigger",
	},
	ActionDelete: {
		Title:  "Delete Build Trigger",
		Prompt: "Are you sure you want to delete this build trigger? No further builds will be automatically started.",
		Button: "Delete Build Trigger",
	},
}

// ConfirmationFor returns the dialog shown before a destructive or
// state-changing action. Actions without one run immediately.
func ConfirmationFor(a Action) (Confirmation, bool) {
	c, ok := confirmations[a]
	return c, ok
}

const (
	EnabledNotice  = "Successfully enabled trigger"
	DisabledNotice = "Successfully disabled trigger"
	DeletedNotice  = "Successfully deleted trigger"
)

// Manager owns the client-side copy of a repository's trigger list.
type Manager struct {
	client Client
	repo   api.RepoRef

	mu       sync.Mutex
	triggers []api.Trigger
	deleted  map[string]bool
}

func NewManager(client Client, repo api.RepoRef) *Manager {
	return &Manager{client: client, repo: repo, deleted: map[string]bool{}}
}

func (m *Manager) Repo() api.RepoRef { return m.repo }

// Triggers returns a copy of the last fetched list.
func (m *Manager) Triggers() []api.Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]api.Trigger{}, m.triggers...)
}

func (m *Manager) Get(id string) (api.Trigger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.triggers {
		if t.ID == id {
			return t, true
		}
	}
	return api.Trigger{}, false
}

// Refresh re-fetches the list. Triggers deleted through this manager stay
// gone even if a lagging response still carries them.
func (m *Manager) Refresh(ctx context.Context) ([]api.Trigger, error) {
	list, err := m.client.ListTriggers(ctx, m.repo)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := list[:0:0]
	for _, t := range list {
		if m.deleted[t.ID] {
			continue
		}
		kept = append(kept, t)
	}
	m.triggers = kept
	return append([]api.Trigger{}, kept...), nil
}

// SetEnabled toggles a trigger and refreshes the list. The returned message is
// the success notice. A failed refresh after a successful toggle is logged,
// not returned: the write already happened.
func (m *Manager) SetEnabled(ctx context.Context, id string, enabled bool) (string, error) {
	if err := m.client.ToggleTrigger(ctx, m.repo, id, enabled); err != nil {
		return "", errors.Wrap(err, "Error toggling trigger")
	}
	log.Info().Str("trigger", id).Bool("enabled", enabled).Msg("toggled build trigger")
	if _, err := m.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh after toggle failed")
	}
	if enabled {
		return EnabledNotice, nil
	}
	return DisabledNotice, nil
}

// Delete removes a trigger. On success it is dropped from the local list at
// once and never reappears.
func (m *Manager) Delete(ctx context.Context, id string) (string, error) {
	if err := m.client.DeleteTrigger(ctx, m.repo, id); err != nil {
		return "", errors.Wrap(err, "Error deleting trigger")
	}
	log.Info().Str("trigger", id).Msg("deleted build trigger")

	m.mu.Lock()
	m.deleted[id] = true
	kept := m.triggers[:0:0]
	for _, t := range m.triggers {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.triggers = kept
	m.mu.Unlock()

	if _, err := m.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh after delete failed")
	}
	return DeletedNotice, nil
}

// Run performs a row action. Enable/Disable/Delete go to the server; view
// credentials is local.
func (m *Manager) Run(ctx context.Context, id string, a Action) (string, error) {
	switch a {
	case ActionEnable:
		return m.SetEnabled(ctx, id, true)
	case ActionDisable:
		return m.SetEnabled(ctx, id, false)
	case ActionDelete:
		return m.Delete(ctx, id)
	}
	return "", errors.Errorf("action %q does not call the registry", a)
}
