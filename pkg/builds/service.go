package builds

import "github.com/go-go-golems/registryctl/pkg/api"

// SourceService carries the per-provider wording and link templates.
type SourceService interface {
	// DisplayName is the provider name used in sentences, "" for custom git.
	DisplayName() string
	PushText(gitURL string) string
	CommitURL(base, sha string) string
	// RefURL returns "" when the provider has no browsable ref pages.
	RefURL(base string, ref Ref) string
}

type gitHub struct{}
type gitLab struct{}
type bitbucket struct{}
type customGit struct{}

var services = map[api.Service]SourceService{
	api.ServiceGitHub:    gitHub{},
	api.ServiceGitLab:    gitLab{},
	api.ServiceBitbucket: bitbucket{},
	api.ServiceCustomGit: customGit{},
}

// ServiceFor returns the formatter for a trigger service. Unknown services
// are treated as custom git.
func ServiceFor(s api.Service) SourceService {
	if svc, ok := services[s]; ok {
		return svc
	}
	return customGit{}
}

func serviceFor(t *api.Trigger) SourceService {
	if t == nil {
		return customGit{}
	}
	return ServiceFor(t.Service)
}

func pushText(name, gitURL string) string {
	if name == "" {
		return "Triggered by push to repository " + gitURL
	}
	return "Triggered by push to " + name + " repository " + gitURL
}

func (gitHub) DisplayName() string                { return "GitHub" }
func (s gitHub) PushText(gitURL string) string    { return pushText(s.DisplayName(), gitURL) }
func (gitHub) CommitURL(base, sha string) string  { return base + "/commit/" + sha }
func (gitHub) RefURL(base string, ref Ref) string {
	if ref.Kind == RefTag {
		return base + "/releases/tag/" + ref.Name
	}
	return base + "/tree/" + ref.Name
}

func (gitLab) DisplayName() string                { return "GitLab" }
func (s gitLab) PushText(gitURL string) string    { return pushText(s.DisplayName(), gitURL) }
func (gitLab) CommitURL(base, sha string) string  { return base + "/commit/" + sha }
func (gitLab) RefURL(base string, ref Ref) string {
	if ref.Kind == RefTag {
		return base + "/commits/" + ref.Name
	}
	return base + "/tree/" + ref.Name
}

func (bitbucket) DisplayName() string                { return "BitBucket" }
func (s bitbucket) PushText(gitURL string) string    { return pushText(s.DisplayName(), gitURL) }
func (bitbucket) CommitURL(base, sha string) string  { return base + "/commits/" + sha }
func (bitbucket) RefURL(base string, ref Ref) string {
	if ref.Kind == RefTag {
		return base + "/commits/tag/" + ref.Name
	}
	return base + "/branch/" + ref.Name
}

func (customGit) DisplayName() string               { return "" }
func (s customGit) PushText(gitURL string) string   { return pushText(s.DisplayName(), gitURL) }
func (customGit) CommitURL(base, sha string) string { return "" }
func (customGit) RefURL(string, Ref) string         { return "" }
