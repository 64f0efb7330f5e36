package api_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/fakeregistry"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*api.Client, *fakeregistry.Server) {
	t.Helper()
	fake := fakeregistry.New()
	fake.Seed()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := api.NewClient(api.Options{
		Server:       srv.URL,
		RetryMax:     0,
		RetryWaitMin: time.Millisecond,
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	return c, fake
}

func TestClient_ListBuildsDefaultLimit(t *testing.T) {
	c, fake := newTestClient(t)

	builds, err := c.ListBuilds(context.Background(), fakeregistry.TestRepo, api.ListBuildsOptions{})
	require.NoError(t, err)
	require.Len(t, builds, 10)
	require.Equal(t, "build001", builds[0].ID)

	reqs := fake.RequestsMatching(http.MethodGet, "/build/")
	require.Len(t, reqs, 1)
	require.Equal(t, "/api/v1/repository/testorg/testrepo/build/", reqs[0].Path)
	require.Equal(t, "limit=10", reqs[0].Query)
}

func TestClient_ListBuildsSince(t *testing.T) {
	c, fake := newTestClient(t)

	since := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
	builds, err := c.ListBuilds(context.Background(), fakeregistry.TestRepo, api.ListBuildsOptions{Limit: 100, Since: &since})
	require.NoError(t, err)
	require.Len(t, builds, 3)

	reqs := fake.RequestsMatching(http.MethodGet, "/build/")
	require.Len(t, reqs, 1)
	q, err := url.ParseQuery(reqs[0].Query)
	require.NoError(t, err)
	require.Equal(t, "100", q.Get("limit"))
	require.Equal(t, strconv.FormatInt(since.Unix(), 10), q.Get("since"))
}

func TestClient_ToggleSendsOnlyEnabled(t *testing.T) {
	c, fake := newTestClient(t)

	for _, enabled := range []bool{false, true} {
		require.NoError(t, c.ToggleTrigger(context.Background(), fakeregistry.TestRepo, fakeregistry.GitHubTriggerID, enabled))
	}

	reqs := fake.RequestsMatching(http.MethodPut, fakeregistry.GitHubTriggerID)
	require.Len(t, reqs, 2)
	require.JSONEq(t, `{"enabled": false}`, string(reqs[0].Body))
	require.JSONEq(t, `{"enabled": true}`, string(reqs[1].Body))
}

func TestClient_DeleteThenListDoesNotResurrect(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.DeleteTrigger(ctx, fakeregistry.TestRepo, fakeregistry.GitHubTriggerID))
	triggers, err := c.ListTriggers(ctx, fakeregistry.TestRepo)
	require.NoError(t, err)
	for _, tr := range triggers {
		require.NotEqual(t, fakeregistry.GitHubTriggerID, tr.ID)
	}

	_, err = c.GetTrigger(ctx, fakeregistry.TestRepo, fakeregistry.GitHubTriggerID)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestClient_AnalyzeAndActivateUseSnakeCase(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	cfg := api.BuildTriggerConfig{
		BuildSource:            "https://github.com/quay/quay",
		DockerfilePath:         "/Dockerfile",
		Context:                "/context",
		DefaultTagFromRef:      true,
		LatestForDefaultBranch: true,
		TagTemplates:           []string{"template2"},
	}

	analysis, err := c.AnalyzeTrigger(ctx, fakeregistry.TestRepo, fakeregistry.PendingTriggerID, cfg)
	require.NoError(t, err)
	require.Equal(t, "analyzed", analysis.Status)
	require.Len(t, analysis.Robots, 2)

	reqs := fake.RequestsMatching(http.MethodPost, "/analyze")
	require.Len(t, reqs, 1)
	require.JSONEq(t, `{"config":{"build_source":"https://github.com/quay/quay","context":"/context","dockerfile_path":"/Dockerfile"}}`, string(reqs[0].Body))

	tr, err := c.ActivateTrigger(ctx, fakeregistry.TestRepo, fakeregistry.PendingTriggerID, cfg, "")
	require.NoError(t, err)
	require.True(t, tr.IsActive)
	_, ok := tr.Credential("Webhook Endpoint URL")
	require.True(t, ok)

	reqs = fake.RequestsMatching(http.MethodPost, "/activate")
	require.Len(t, reqs, 1)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	_, hasRobot := body["pull_robot"]
	require.False(t, hasRobot)
	require.JSONEq(t, `{
		"build_source": "https://github.com/quay/quay",
		"dockerfile_path": "/Dockerfile",
		"context": "/context",
		"default_tag_from_ref": true,
		"latest_for_default_branch": true,
		"tag_templates": ["template2"]
	}`, string(body["config"]))
}

func TestClient_HTTPErrorMessage(t *testing.T) {
	c, fake := newTestClient(t)
	fake.FailWith(http.MethodPost, "/analyze", http.StatusInternalServerError)

	_, err := c.AnalyzeTrigger(context.Background(), fakeregistry.TestRepo, fakeregistry.PendingTriggerID, api.BuildTriggerConfig{BuildSource: "https://github.com/quay/quay"})
	require.Error(t, err)
	require.Equal(t, "Request failed with status code 500", err.Error())

	var te *api.TransportError
	require.True(t, stderrors.As(err, &te))
	require.Equal(t, http.StatusInternalServerError, te.StatusCode)
}

func TestClient_ReadsRetryWritesDoNot(t *testing.T) {
	var gets, posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if gets.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"triggers": []}`))
		default:
			posts.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c, err := api.NewClient(api.Options{Server: srv.URL, RetryMax: 3, RetryWaitMin: time.Millisecond, RetryWaitMax: 2 * time.Millisecond})
	require.NoError(t, err)

	triggers, err := c.ListTriggers(context.Background(), fakeregistry.TestRepo)
	require.NoError(t, err)
	require.Empty(t, triggers)
	require.Equal(t, int32(3), gets.Load())

	_, err = c.ActivateTrigger(context.Background(), fakeregistry.TestRepo, "x", api.BuildTriggerConfig{BuildSource: "https://example.com/r"}, "")
	require.Error(t, err)
	require.Equal(t, int32(1), posts.Load())
}

func TestClient_ListCancelled(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListTriggers(ctx, fakeregistry.TestRepo)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_RejectsBadServer(t *testing.T) {
	_, err := api.NewClient(api.Options{})
	require.Error(t, err)
	_, err = api.NewClient(api.Options{Server: "not a url"})
	require.Error(t, err)
}
