package builds

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
	"github.com/go-go-golems/registryctl/pkg/api"
)

type DescriptionKind string

const (
	KindCommit     DescriptionKind = "commit"
	KindPush       DescriptionKind = "push"
	KindCommitOnly DescriptionKind = "commit-only"
	KindManualUser DescriptionKind = "manual-user"
	KindManual     DescriptionKind = "manual"
)

const ManualTriggerText = "(Manually Triggered Build)"

type RefKind string

const (
	RefBranch RefKind = "branch"
	RefTag    RefKind = "tag"
)

// Ref is a git ref split into its kind and short name.
type Ref struct {
	Kind RefKind
	Name string
}

func ParseRef(ref string) (Ref, bool) {
	switch {
	case ref == "":
		return Ref{}, false
	case strings.HasPrefix(ref, "refs/heads/"):
		return Ref{Kind: RefBranch, Name: strings.TrimPrefix(ref, "refs/heads/")}, true
	case strings.HasPrefix(ref, "refs/tags/"):
		return Ref{Kind: RefTag, Name: strings.TrimPrefix(ref, "refs/tags/")}, true
	}
	return Ref{Kind: RefBranch, Name: ref}, true
}

// Description is the "Triggered by" cell of a build row. Only the fields
// relevant to Kind are set; URLs are empty when a service has no link for them.
type Description struct {
	Kind DescriptionKind
	Text string

	Message    string
	MessageURL string
	AuthoredAt time.Time
	Author     string
	AuthorURL  string
	Commit     string
	CommitURL  string
	Ref        Ref
	RefURL     string
}

// AuthoredAgo renders the authored date relative to now, or "" if unknown.
func (d Description) AuthoredAgo(now time.Time) string {
	if d.AuthoredAt.IsZero() {
		return ""
	}
	return humanize.RelTime(d.AuthoredAt, now, "ago", "from now")
}

// Describe derives the trigger description of a build. It reads b and never
// modifies it.
func Describe(b api.Build) Description {
	meta := b.TriggerMetadata

	if meta != nil && meta.CommitInfo != nil {
		return describeCommit(serviceFor(b.Trigger), meta)
	}
	if b.Trigger != nil && meta != nil {
		return Description{Kind: KindPush, Text: serviceFor(b.Trigger).PushText(meta.GitURL)}
	}
	if meta != nil && meta.Commit != "" {
		return Description{Kind: KindCommitOnly, Text: "Triggered by commit " + meta.Commit}
	}
	if b.ManualUser != "" {
		return Description{Kind: KindManualUser, Text: b.ManualUser}
	}
	return Description{Kind: KindManual, Text: ManualTriggerText}
}

func describeCommit(svc SourceService, meta *api.TriggerMetadata) Description {
	ci := meta.CommitInfo
	sha := meta.CommitSHA
	if sha == "" {
		sha = meta.Commit
	}
	base := repoBaseURL(meta)

	d := Description{
		Kind:       KindCommit,
		Text:       ci.Message,
		Message:    ci.Message,
		MessageURL: ci.URL,
		Commit:     ShortSHA(sha),
		CommitURL:  ci.URL,
	}
	if d.CommitURL == "" && base != "" && sha != "" {
		d.CommitURL = svc.CommitURL(base, sha)
	}
	if ci.Date != "" {
		if t, err := dateparse.ParseAny(ci.Date); err == nil {
			d.AuthoredAt = t
		}
	}
	if ci.Author != nil {
		d.Author = ci.Author.Username
		d.AuthorURL = ci.Author.URL
	}
	if ref, ok := ParseRef(meta.Ref); ok {
		d.Ref = ref
		if base != "" {
			d.RefURL = svc.RefURL(base, ref)
		}
	}
	return d
}

// ShortSHA returns the abbreviated commit id shown in build rows.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// repoBaseURL finds the web URL of the source repository: the commit URL
// minus its /commit/<sha> suffix, else the git URL in https form.
func repoBaseURL(meta *api.TriggerMetadata) string {
	if meta.CommitInfo != nil && meta.CommitInfo.URL != "" {
		for _, marker := range []string{"/commit/", "/commits/"} {
			if i := strings.LastIndex(meta.CommitInfo.URL, marker); i > 0 {
				return meta.CommitInfo.URL[:i]
			}
		}
	}
	return webURLFromGit(meta.GitURL)
}

func webURLFromGit(gitURL string) string {
	u := strings.TrimSuffix(strings.TrimSpace(gitURL), ".git")
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "git@"):
		host, path, ok := strings.Cut(strings.TrimPrefix(u, "git@"), ":")
		if !ok {
			return ""
		}
		return "https://" + host + "/" + path
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		return u
	}
	return ""
}
