package access

import "github.com/go-go-golems/registryctl/pkg/api"

type Capability string

const (
	CreateTrigger   Capability = "create-trigger"
	ToggleTrigger   Capability = "toggle-trigger"
	DeleteTrigger   Capability = "delete-trigger"
	ViewCredentials Capability = "view-credentials"
	RunWizard       Capability = "run-wizard"
	ViewBuilds      Capability = "view-builds"
)

// Role is what the registry tells us about the caller for one repository.
type Role struct {
	IsAdmin    bool
	CanWrite   bool
	IsReadOnly bool
}

// RoleFor combines repository permissions with the registry-wide read-only
// switch.
func RoleFor(repo api.Repository, readOnly bool) Role {
	return Role{IsAdmin: repo.CanAdmin, CanWrite: repo.CanWrite, IsReadOnly: readOnly}
}

type Set map[Capability]bool

func (s Set) Has(c Capability) bool { return s[c] }

// Capabilities is the single place role flags turn into permitted actions.
// Trigger management needs admin. A read-only registry keeps the view
// capabilities and drops every write.
func Capabilities(r Role) Set {
	s := Set{ViewBuilds: true}
	if !r.IsAdmin {
		return s
	}
	s[ViewCredentials] = true
	if r.IsReadOnly {
		return s
	}
	s[CreateTrigger] = true
	s[ToggleTrigger] = true
	s[DeleteTrigger] = true
	s[RunWizard] = true
	return s
}
