package builds

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/stretchr/testify/require"
)

const commitURL = "https://github.com/quay/quay/commit/commit2b46cf9a7510fd9ef3bcc7191834c5abda"

func commitBuild(svc api.Service, ref string) api.Build {
	return api.Build{
		ID:      "b",
		Phase:   api.PhaseComplete,
		Trigger: &api.Trigger{Service: svc},
		TriggerMetadata: &api.TriggerMetadata{
			CommitSHA: "commit2b46cf9a7510fd9ef3bcc7191834c5abda",
			Ref:       ref,
			GitURL:    "git@github.com:quay/quay.git",
			CommitInfo: &api.CommitInfo{
				URL:     commitURL,
				Message: "github build from branch",
				Date:    "2023-11-28T10:42:17-05:00",
				Author:  &api.Person{Username: "user1"},
			},
		},
	}
}

func TestStatusLabel_AllPhases(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range api.Phases {
		label, err := StatusLabel(p)
		require.NoError(t, err)
		require.False(t, seen[label], "duplicate label %q", label)
		seen[label] = true
		if p == api.PhaseInternalError {
			require.Equal(t, "internal error", label)
		} else {
			require.Equal(t, string(p), label)
		}
	}

	_, err := StatusLabel("exploded")
	require.ErrorIs(t, err, ErrUnknownPhase)
}

func TestDescribe_CommitLinksPerService(t *testing.T) {
	cases := []struct {
		svc     api.Service
		ref     string
		wantRef string
	}{
		{api.ServiceGitHub, "refs/heads/master", "https://github.com/quay/quay/tree/master"},
		{api.ServiceGitHub, "refs/tags/newtag", "https://github.com/quay/quay/releases/tag/newtag"},
		{api.ServiceGitLab, "refs/heads/master", "https://github.com/quay/quay/tree/master"},
		{api.ServiceGitLab, "refs/tags/newtag", "https://github.com/quay/quay/commits/newtag"},
		{api.ServiceBitbucket, "refs/heads/master", "https://github.com/quay/quay/branch/master"},
		{api.ServiceBitbucket, "refs/tags/newtag", "https://github.com/quay/quay/commits/tag/newtag"},
		{api.ServiceCustomGit, "refs/heads/master", ""},
	}
	for _, c := range cases {
		t.Run(string(c.svc)+" "+c.ref, func(t *testing.T) {
			d := Describe(commitBuild(c.svc, c.ref))
			require.Equal(t, KindCommit, d.Kind)
			require.Equal(t, "github build from branch", d.Message)
			require.Equal(t, commitURL, d.MessageURL)
			require.Equal(t, commitURL, d.CommitURL)
			require.Equal(t, "commit2", d.Commit)
			require.Equal(t, "user1", d.Author)
			require.Equal(t, c.wantRef, d.RefURL)
		})
	}
}

func TestDescribe_FallbackOrder(t *testing.T) {
	push := func(svc api.Service) api.Build {
		return api.Build{
			Trigger:         &api.Trigger{Service: svc},
			TriggerMetadata: &api.TriggerMetadata{GitURL: "https://github.com/quay/quay"},
		}
	}
	require.Equal(t, "Triggered by push to GitHub repository https://github.com/quay/quay", Describe(push(api.ServiceGitHub)).Text)
	require.Equal(t, "Triggered by push to GitLab repository https://github.com/quay/quay", Describe(push(api.ServiceGitLab)).Text)
	require.Equal(t, "Triggered by push to BitBucket repository https://github.com/quay/quay", Describe(push(api.ServiceBitbucket)).Text)
	require.Equal(t, "Triggered by push to repository https://github.com/quay/quay", Describe(push(api.ServiceCustomGit)).Text)

	d := Describe(api.Build{TriggerMetadata: &api.TriggerMetadata{Commit: "commit1"}})
	require.Equal(t, KindCommitOnly, d.Kind)
	require.Equal(t, "Triggered by commit commit1", d.Text)

	d = Describe(api.Build{ManualUser: "user1"})
	require.Equal(t, KindManualUser, d.Kind)
	require.Equal(t, "user1", d.Text)

	d = Describe(api.Build{})
	require.Equal(t, KindManual, d.Kind)
	require.Equal(t, "(Manually Triggered Build)", d.Text)
}

func TestDescribe_DoesNotMutate(t *testing.T) {
	b := commitBuild(api.ServiceGitHub, "refs/tags/newtag")
	before := commitBuild(api.ServiceGitHub, "refs/tags/newtag")

	first := Describe(b)
	second := Describe(b)
	require.True(t, reflect.DeepEqual(before, b))
	require.Equal(t, first, second)
}

func TestDescribe_BaseFromGitURL(t *testing.T) {
	b := commitBuild(api.ServiceGitHub, "refs/heads/main")
	b.TriggerMetadata.CommitInfo.URL = ""
	d := Describe(b)
	require.Equal(t, "https://github.com/quay/quay/tree/main", d.RefURL)
	require.Equal(t, "https://github.com/quay/quay/commit/commit2b46cf9a7510fd9ef3bcc7191834c5abda", d.CommitURL)
}

func TestAuthoredAgo(t *testing.T) {
	d := Describe(commitBuild(api.ServiceGitHub, "refs/heads/master"))
	now := d.AuthoredAt.Add(3 * time.Hour)
	require.Equal(t, "3 hours ago", d.AuthoredAgo(now))
	require.Equal(t, "", Description{}.AuthoredAgo(now))
}

func TestWindow_Query(t *testing.T) {
	now := time.Date(2023, 11, 30, 12, 0, 0, 500, time.UTC)

	q := WindowAll.Query(now)
	require.Equal(t, 10, q.Limit)
	require.Nil(t, q.Since)

	q = Window48Hours.Query(now)
	require.Equal(t, 100, q.Limit)
	require.NotNil(t, q.Since)
	require.Equal(t, time.Date(2023, 11, 28, 12, 0, 0, 0, time.UTC), *q.Since)
	require.Equal(t, 2*24*time.Hour, now.Truncate(time.Second).Sub(*q.Since))

	q = Window30Days.Query(now)
	require.Equal(t, 100, q.Limit)
	require.Equal(t, 30*24*time.Hour, now.Truncate(time.Second).Sub(*q.Since))

	require.Equal(t, "Last 48 hours", Window48Hours.Label())
	require.Equal(t, "Last 30 days", Window30Days.Label())
	require.Equal(t, Window48Hours, WindowAll.Next())
	require.Equal(t, WindowAll, Window30Days.Next())

	_, err := ParseWindow("7d")
	require.Error(t, err)
}

func TestRows_UnknownPhaseFails(t *testing.T) {
	_, err := Rows([]api.Build{{ID: "x", Phase: "exploded"}})
	require.ErrorIs(t, err, ErrUnknownPhase)
}

func TestRows_StartedText(t *testing.T) {
	rows, err := Rows([]api.Build{
		{ID: "a", Phase: api.PhaseComplete, Started: "Tue, 28 Nov 2023 15:37:33 -0000", Tags: []string{"latest", "master"}},
		{ID: "b", Phase: api.PhaseComplete, Started: "sometime"},
	})
	require.NoError(t, err)
	require.Equal(t, "Nov 28, 2023, 3:37 PM", rows[0].StartedText(time.UTC))
	require.Equal(t, "latest, master", rows[0].TagsText())
	require.Equal(t, "sometime", rows[1].StartedText(time.UTC))
}

func TestCollapseMessage(t *testing.T) {
	short := strings.Repeat("a", LongMessageThreshold)
	got, cut := CollapseMessage(short)
	require.False(t, cut)
	require.Equal(t, short, got)

	long := strings.Repeat("é", LongMessageThreshold+1)
	got, cut = CollapseMessage(long)
	require.True(t, cut)
	require.Equal(t, strings.Repeat("é", LongMessageThreshold)+"...", got)

	d := Description{Message: long}
	require.Equal(t, long, d.MessageText(true))

	e := Expansion{}
	e.Toggle("b1")
	require.True(t, e.Expanded("b1"))
	e.Toggle("b1")
	require.False(t, e.Expanded("b1"))
}
