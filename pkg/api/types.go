package api

import "strings"

type Phase string

const (
	PhaseError          Phase = "error"
	PhaseInternalError  Phase = "internalerror"
	PhaseBuildScheduled Phase = "build-scheduled"
	PhaseUnpacking      Phase = "unpacking"
	PhasePulling        Phase = "pulling"
	PhaseBuilding       Phase = "building"
	PhasePushing        Phase = "pushing"
	PhaseWaiting        Phase = "waiting"
	PhaseComplete       Phase = "complete"
	PhaseCancelled      Phase = "cancelled"
	PhaseExpired        Phase = "expired"
)

// Phases lists every build phase the registry reports, in lifecycle order.
var Phases = []Phase{
	PhaseError,
	PhaseInternalError,
	PhaseBuildScheduled,
	PhaseUnpacking,
	PhasePulling,
	PhaseBuilding,
	PhasePushing,
	PhaseWaiting,
	PhaseComplete,
	PhaseCancelled,
	PhaseExpired,
}

type Service string

const (
	ServiceGitHub    Service = "github"
	ServiceGitLab    Service = "gitlab"
	ServiceBitbucket Service = "bitbucket"
	ServiceCustomGit Service = "custom-git"
)

type DisabledReason string

const (
	DisabledUserToggled                   DisabledReason = "user_toggled"
	DisabledSuccessiveBuildFailures       DisabledReason = "successive_build_failures"
	DisabledSuccessiveBuildInternalErrors DisabledReason = "successive_build_internal_errors"
)

// RepoRef names a repository as namespace/name.
type RepoRef struct {
	Namespace string
	Name      string
}

func (r RepoRef) String() string { return r.Namespace + "/" + r.Name }

func (r RepoRef) Valid() bool {
	return r.Namespace != "" && r.Name != "" && !strings.Contains(r.Namespace, "/") && !strings.Contains(r.Name, "/")
}

type Entity struct {
	Name    string `json:"name"`
	Kind    string `json:"kind,omitempty"`
	IsRobot bool   `json:"is_robot,omitempty"`
	CanRead bool   `json:"can_read,omitempty"`
	Avatar  any    `json:"avatar,omitempty"`
}

type Repository struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	CanWrite  bool   `json:"can_write"`
	CanAdmin  bool   `json:"can_admin"`
	IsPublic  bool   `json:"is_public,omitempty"`
}

type Build struct {
	ID              string           `json:"id"`
	Phase           Phase            `json:"phase"`
	Started         string           `json:"started"`
	DisplayName     string           `json:"display_name,omitempty"`
	Subdirectory    string           `json:"subdirectory,omitempty"`
	DockerfilePath  string           `json:"dockerfile_path,omitempty"`
	Context         string           `json:"context,omitempty"`
	Tags            []string         `json:"tags"`
	ManualUser      string           `json:"manual_user,omitempty"`
	IsWriter        bool             `json:"is_writer,omitempty"`
	Trigger         *Trigger         `json:"trigger,omitempty"`
	TriggerMetadata *TriggerMetadata `json:"trigger_metadata,omitempty"`
	ResourceKey     string           `json:"resource_key,omitempty"`
	Repository      *struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
	} `json:"repository,omitempty"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

type Credential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TriggerConfig is the server's view of a trigger's configuration.
type TriggerConfig struct {
	BuildSource            string       `json:"build_source,omitempty"`
	DockerfilePath         string       `json:"dockerfile_path,omitempty"`
	Context                string       `json:"context,omitempty"`
	BranchTagRegex         string       `json:"branchtag_regex,omitempty"`
	DefaultTagFromRef      bool         `json:"default_tag_from_ref,omitempty"`
	LatestForDefaultBranch bool         `json:"latest_for_default_branch,omitempty"`
	TagTemplates           []string     `json:"tag_templates,omitempty"`
	Credentials            []Credential `json:"credentials,omitempty"`
	DeployKeyID            int          `json:"deploy_key_id,omitempty"`
	HookID                 int          `json:"hook_id,omitempty"`
	MasterBranch           string       `json:"master_branch,omitempty"`
}

type Trigger struct {
	ID             string         `json:"id"`
	Service        Service        `json:"service"`
	IsActive       bool           `json:"is_active"`
	BuildSource    string         `json:"build_source,omitempty"`
	RepositoryURL  string         `json:"repository_url,omitempty"`
	Config         *TriggerConfig `json:"config,omitempty"`
	CanInvoke      bool           `json:"can_invoke,omitempty"`
	Enabled        bool           `json:"enabled"`
	DisabledReason DisabledReason `json:"disabled_reason,omitempty"`
	PullRobot      *Entity        `json:"pull_robot,omitempty"`
}

// Credential returns the value of the named credential, if present.
func (t Trigger) Credential(name string) (string, bool) {
	if t.Config == nil {
		return "", false
	}
	for _, c := range t.Config.Credentials {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

type Person struct {
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type CommitInfo struct {
	URL       string  `json:"url,omitempty"`
	Message   string  `json:"message,omitempty"`
	Date      string  `json:"date,omitempty"`
	Author    *Person `json:"author,omitempty"`
	Committer *Person `json:"committer,omitempty"`
}

type TriggerMetadata struct {
	Commit        string      `json:"commit,omitempty"`
	CommitSHA     string      `json:"commit_sha,omitempty"`
	Ref           string      `json:"ref,omitempty"`
	DefaultBranch string      `json:"default_branch,omitempty"`
	GitURL        string      `json:"git_url,omitempty"`
	CommitInfo    *CommitInfo `json:"commit_info,omitempty"`
}

// Analysis is the result of a pre-activation trigger check.
type Analysis struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Robots    []Entity `json:"robots"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	IsAdmin   bool     `json:"is_admin"`
}

// BuildTriggerConfig is the configuration assembled by the setup wizard. It is
// translated to the snake_case wire form only when sent.
type BuildTriggerConfig struct {
	BuildSource            string
	DockerfilePath         string
	Context                string
	BranchTagRegex         string
	DefaultTagFromRef      bool
	LatestForDefaultBranch bool
	TagTemplates           []string
}

type analyzeConfigWire struct {
	BuildSource    string `json:"build_source"`
	Context        string `json:"context"`
	DockerfilePath string `json:"dockerfile_path"`
}

type analyzeBody struct {
	Config analyzeConfigWire `json:"config"`
}

type activateConfigWire struct {
	BuildSource            string   `json:"build_source"`
	DockerfilePath         string   `json:"dockerfile_path,omitempty"`
	Context                string   `json:"context,omitempty"`
	BranchTagRegex         string   `json:"branchtag_regex,omitempty"`
	DefaultTagFromRef      bool     `json:"default_tag_from_ref"`
	LatestForDefaultBranch bool     `json:"latest_for_default_branch"`
	TagTemplates           []string `json:"tag_templates,omitempty"`
}

type activateBody struct {
	Config    activateConfigWire `json:"config"`
	PullRobot string             `json:"pull_robot,omitempty"`
}

type toggleBody struct {
	Enabled bool `json:"enabled"`
}

func newAnalyzeBody(cfg BuildTriggerConfig) analyzeBody {
	return analyzeBody{Config: analyzeConfigWire{
		BuildSource:    cfg.BuildSource,
		Context:        cfg.Context,
		DockerfilePath: cfg.DockerfilePath,
	}}
}

func newActivateBody(cfg BuildTriggerConfig, robot string) activateBody {
	var templates []string
	if len(cfg.TagTemplates) > 0 {
		templates = append([]string{}, cfg.TagTemplates...)
	}
	return activateBody{
		Config: activateConfigWire{
			BuildSource:            cfg.BuildSource,
			DockerfilePath:         cfg.DockerfilePath,
			Context:                cfg.Context,
			BranchTagRegex:         cfg.BranchTagRegex,
			DefaultTagFromRef:      cfg.DefaultTagFromRef,
			LatestForDefaultBranch: cfg.LatestForDefaultBranch,
			TagTemplates:           templates,
		},
		PullRobot: robot,
	}
}
