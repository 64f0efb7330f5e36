package fakeregistry

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "repositories": [{
    "namespace": "acme", "name": "web", "can_admin": true, "can_write": true,
    "builds": [{"id": "b1", "phase": "complete", "started": "Wed, 18 Sep 2019 14:14:23 -0000", "tags": ["latest"]}],
    "triggers": [{"id": "t1", "service": "github", "is_active": true, "enabled": true}]
  }],
  "robots": {"acme": [{"name": "acme+ci", "kind": "user", "is_robot": true}]}
}`), 0o600))

	s := New()
	require.NoError(t, s.LoadFixture(path))
	srv := httptest.NewServer(s)
	defer srv.Close()

	c, err := api.NewClient(api.Options{Server: srv.URL})
	require.NoError(t, err)
	repo := api.RepoRef{Namespace: "acme", Name: "web"}
	ctx := context.Background()

	list, err := c.ListBuilds(ctx, repo, api.ListBuildsOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, []string{"latest"}, list[0].Tags)

	_, ok := s.Trigger(repo, "t1")
	require.True(t, ok)

	robots, err := c.ListRobots(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, robots, 1)
}

func TestFailWith(t *testing.T) {
	s := New()
	s.Seed()
	srv := httptest.NewServer(s)
	defer srv.Close()

	c, err := api.NewClient(api.Options{Server: srv.URL, RetryMax: 0})
	require.NoError(t, err)
	s.FailWith("DELETE", "/trigger/"+GitHubTriggerID, 500)

	err = c.DeleteTrigger(context.Background(), TestRepo, GitHubTriggerID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Request failed with status code 500")
	_, ok := s.Trigger(TestRepo, GitHubTriggerID)
	require.True(t, ok)
	require.Len(t, s.RequestsMatching("DELETE", "/trigger/"+GitHubTriggerID), 1)
}
