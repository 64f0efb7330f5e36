package wizard

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/fakeregistry"
	"github.com/stretchr/testify/require"
)

func newFakeWizard(t *testing.T, triggerID string) (*Wizard, *fakeregistry.Server) {
	t.Helper()
	fake := fakeregistry.New()
	fake.Seed()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(api.Options{Server: srv.URL, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	require.NoError(t, err)
	return New(c, fakeregistry.TestRepo, triggerID), fake
}

// fillToReview walks the form the way a user would.
func fillToReview(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.SetRepoURL("https://github.com/quay/quay"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetTagWithBranchOrTag(true))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetDockerfilePath("/Dockerfile"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetContextPath("/context"))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	require.Equal(t, StepReview, w.Step())
}

func TestTransition_Table(t *testing.T) {
	to, err := Transition(StepRepoURL, EventNext)
	require.NoError(t, err)
	require.Equal(t, StepTaggingOptions, to)

	_, err = Transition(StepRepoURL, EventBack)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = Transition(StepReview, EventNext)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = Transition(StepActivated, EventBack)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = Transition(StepActivated, EventAbort)
	require.ErrorIs(t, err, ErrIllegalTransition)

	to, err = Transition(StepReview, EventActivateOK)
	require.NoError(t, err)
	require.Equal(t, StepActivated, to)
	to, err = Transition(StepReview, EventAnalyzeFailed)
	require.NoError(t, err)
	require.Equal(t, StepReview, to)
}

func TestValidators(t *testing.T) {
	require.Nil(t, ValidateRepoURL("https://github.com/quay/quay"))
	require.Equal(t, MsgInvalidURL, ValidateRepoURL("notavalidurl").Message)
	require.Equal(t, "", ValidateRepoURL("").Message)

	require.Equal(t, MsgDockerfileNoSlash, ValidateDockerfilePath("notavalidpath").Message)
	require.Equal(t, MsgDockerfileNoFile, ValidateDockerfilePath("/Dockerfile/").Message)
	require.Nil(t, ValidateDockerfilePath("/Dockerfile"))
	require.Nil(t, ValidateDockerfilePath("/application/Dockerfile"))

	require.Equal(t, MsgInvalidContext, ValidateContextPath("notavalidpath").Message)
	require.Equal(t, MsgInvalidContext, ValidateContextPath("/a//b").Message)
	require.Equal(t, MsgInvalidContext, ValidateContextPath("/a/../b").Message)
	require.Nil(t, ValidateContextPath("/"))
	require.Nil(t, ValidateContextPath("/context"))
	require.Nil(t, ValidateContextPath("/web/"))

	require.NotNil(t, ValidateTagging(api.BuildTriggerConfig{}))
	require.Nil(t, ValidateTagging(api.BuildTriggerConfig{LatestForDefaultBranch: true}))
	require.Nil(t, ValidateTagging(api.BuildTriggerConfig{TagTemplates: []string{"x"}}))
	require.Equal(t, MsgInvalidBranchTagRegex, ValidateTagging(api.BuildTriggerConfig{DefaultTagFromRef: true, BranchTagRegex: "("}).Message)
}

func TestWizard_NextGatedAndBackKeepsValues(t *testing.T) {
	w, _ := newFakeWizard(t, fakeregistry.PendingTriggerID)

	require.False(t, w.CanNext())
	require.NoError(t, w.SetRepoURL("notavalidurl"))
	err := w.Next()
	var verr *ValidationError
	require.True(t, stderrors.As(err, &verr))
	require.Equal(t, MsgInvalidURL, verr.Message)
	require.Equal(t, StepRepoURL, w.Step())

	require.NoError(t, w.SetRepoURL("https://github.com/quay/quay"))
	require.True(t, w.CanNext())
	require.NoError(t, w.Next())

	require.False(t, w.CanNext())
	require.NoError(t, w.AddTagTemplate("template1"))
	require.NoError(t, w.AddTagTemplate("template2"))
	require.NoError(t, w.AddTagTemplate("template1"))
	require.NoError(t, w.RemoveTagTemplate("template1"))
	require.Equal(t, []string{"template2"}, w.Config().TagTemplates)
	require.NoError(t, w.Next())

	require.NoError(t, w.SetDockerfilePath("/Dockerfile"))
	require.NoError(t, w.Back())
	require.NoError(t, w.Back())
	require.Equal(t, StepRepoURL, w.Step())
	require.ErrorIs(t, w.Back(), ErrIllegalTransition)

	cfg := w.Config()
	require.Equal(t, "https://github.com/quay/quay", cfg.BuildSource)
	require.Equal(t, []string{"template2"}, cfg.TagTemplates)
	require.Equal(t, "/Dockerfile", cfg.DockerfilePath)
}

func TestWizard_FullRunAgainstFakeRegistry(t *testing.T) {
	w, fake := newFakeWizard(t, fakeregistry.PendingTriggerID)
	ctx := context.Background()

	require.NoError(t, w.SetRepoURL("https://github.com/quay/quay"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetTagWithBranchOrTag(true))
	require.NoError(t, w.SetTagWithLatest(true))
	require.NoError(t, w.AddTagTemplate("template2"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetDockerfilePath("/Dockerfile"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetContextPath("/context"))
	require.NoError(t, w.Next())

	robots, err := w.LoadRobots(ctx)
	require.NoError(t, err)
	require.Equal(t, []RobotOption{
		{Name: "testorg+testrobot", Note: ReadAccessNote},
		{Name: "testorg+testrobot2", Note: ReadAccessNote},
	}, robots)
	require.NoError(t, w.Next())

	summary := map[string]string{}
	for _, r := range w.Summary() {
		summary[r.ID] = r.Value
	}
	require.Equal(t, "https://github.com/quay/quay", summary["repo-url"])
	require.Equal(t, "template2", summary["tag-templates"])
	require.Equal(t, "enabled", summary["tag-with-branch-or-tag"])
	require.Equal(t, "enabled", summary["tag-with-latest"])
	require.Equal(t, "/Dockerfile", summary["dockerfile-path"])
	require.Equal(t, "(None)", summary["robot-account"])

	_, err = w.Confirm(ctx)
	require.ErrorIs(t, err, ErrNoAnalysis)

	analysis, err := w.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "analyzed", analysis.Status)
	require.Equal(t, StepReview, w.Step())

	tr, err := w.Confirm(ctx)
	require.NoError(t, err)
	require.True(t, tr.IsActive)
	require.Equal(t, StepActivated, w.Step())

	act, ok := w.Activation()
	require.True(t, ok)
	require.Equal(t, "Trigger has been successfully activated", act.Message)
	require.Equal(t, "Please note: If the trigger continuously fails to build, it will be automatically disabled. It can be re-enabled from the build trigger list.", act.Note)
	require.Equal(t, "In order to use this trigger, the following first requires action:", act.Credentials.Intro)
	require.Len(t, act.Credentials.Lines, 2)
	require.Equal(t, "SSH Public Key", act.Credentials.Lines[0].Name)
	require.Equal(t, "Webhook Endpoint URL", act.Credentials.Lines[1].Name)

	reqs := fake.RequestsMatching(http.MethodPost, "/activate")
	require.Len(t, reqs, 1)
	require.JSONEq(t, `{"config":{
		"build_source": "https://github.com/quay/quay",
		"dockerfile_path": "/Dockerfile",
		"context": "/context",
		"default_tag_from_ref": true,
		"latest_for_default_branch": true,
		"tag_templates": ["template2"]
	}}`, string(reqs[0].Body))

	require.ErrorIs(t, w.SetRepoURL("https://example.com"), ErrNotEditing)
	require.NoError(t, w.Dismiss())
	require.Equal(t, StepClosed, w.Step())
}

func TestWizard_AnalyzeFailureStaysOnReview(t *testing.T) {
	w, fake := newFakeWizard(t, fakeregistry.PendingTriggerID)
	fillToReview(t, w)
	fake.FailWith(http.MethodPost, "/analyze", http.StatusInternalServerError)

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, "Request failed with status code 500", err.Error())
	require.Equal(t, "Request failed with status code 500", w.Banner())
	require.Equal(t, StepReview, w.Step())
	require.False(t, w.Busy())

	fake.ClearFailures()
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", w.Banner())
}

func TestWizard_ActivateFailureIsRetriable(t *testing.T) {
	w, fake := newFakeWizard(t, fakeregistry.PendingTriggerID)
	fillToReview(t, w)
	require.NoError(t, w.SelectRobot("testorg+testrobot"))
	fake.FailWith(http.MethodPost, "/activate", http.StatusInternalServerError)

	_, err := w.SubmitAndConfirm(context.Background())
	require.Error(t, err)
	require.Equal(t, "Error activating trigger", err.Error())
	var aerr *api.ActivationError
	require.True(t, stderrors.As(err, &aerr))
	require.Equal(t, StepReview, w.Step())

	fake.ClearFailures()
	tr, err := w.Confirm(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tr.PullRobot)
	require.Equal(t, "testorg+testrobot", tr.PullRobot.Name)
}

func TestWizard_AnalysisErrorStatus(t *testing.T) {
	fc := &blockingClient{analysis: &api.Analysis{Status: "error", Message: "Could not read Dockerfile"}}
	w := New(fc, fakeregistry.TestRepo, "t1")
	fillToReview(t, w)

	_, err := w.Submit(context.Background())
	require.EqualError(t, err, "Could not read Dockerfile")
	require.Nil(t, w.Analysis())
	require.Equal(t, StepReview, w.Step())
}

func TestWizard_RobotListFailureKeepsStepValid(t *testing.T) {
	w, fake := newFakeWizard(t, fakeregistry.PendingTriggerID)
	fake.FailWith(http.MethodGet, "/robots", http.StatusInternalServerError)
	require.NoError(t, w.SetRepoURL("https://github.com/quay/quay"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetTagWithLatest(true))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetDockerfilePath("/Dockerfile"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetContextPath("/"))
	require.NoError(t, w.Next())

	_, err := w.LoadRobots(context.Background())
	require.Error(t, err)
	require.Equal(t, "Request failed with status code 500", w.Banner())
	require.True(t, w.CanNext())
	require.NoError(t, w.Next())
	require.Equal(t, StepReview, w.Step())
}

// blockingClient holds analyze until release is closed.
type blockingClient struct {
	started  chan struct{}
	release  chan struct{}
	analysis *api.Analysis
}

var _ Client = (*blockingClient)(nil)

func (b *blockingClient) AnalyzeTrigger(ctx context.Context, repo api.RepoRef, uuid string, cfg api.BuildTriggerConfig) (*api.Analysis, error) {
	if b.started != nil {
		close(b.started)
		<-b.release
	}
	if b.analysis != nil {
		return b.analysis, nil
	}
	return &api.Analysis{Status: "analyzed"}, nil
}

func (b *blockingClient) ActivateTrigger(ctx context.Context, repo api.RepoRef, uuid string, cfg api.BuildTriggerConfig, robot string) (*api.Trigger, error) {
	return &api.Trigger{ID: uuid, IsActive: true, Enabled: true}, nil
}

func (b *blockingClient) ListRobots(ctx context.Context, org string) ([]api.Entity, error) {
	return nil, nil
}

func TestWizard_DoubleSubmitRejected(t *testing.T) {
	bc := &blockingClient{started: make(chan struct{}), release: make(chan struct{})}
	w := New(bc, fakeregistry.TestRepo, "t1")
	fillToReview(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	<-bc.started

	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, w.Back(), ErrBusy)
	require.ErrorIs(t, w.SetContextPath("/other"), ErrBusy)

	close(bc.release)
	require.NoError(t, <-done)
	require.False(t, w.Busy())
}

func TestWizard_RestoreStopsAtFirstInvalidStep(t *testing.T) {
	w := New(&blockingClient{}, fakeregistry.TestRepo, "t1")
	cfg := api.BuildTriggerConfig{BuildSource: "https://github.com/quay/quay", DefaultTagFromRef: true, DockerfilePath: "Dockerfile"}
	require.NoError(t, w.Restore(cfg, "", StepReview))
	require.Equal(t, StepDockerfilePath, w.Step())

	w = New(&blockingClient{}, fakeregistry.TestRepo, "t2")
	cfg.DockerfilePath = "/Dockerfile"
	cfg.Context = "/"
	require.NoError(t, w.Restore(cfg, "testorg+testrobot", StepRobotAccount))
	require.Equal(t, StepRobotAccount, w.Step())
	require.Equal(t, "testorg+testrobot", w.Robot())
}

func TestWizard_RestoreNormalizesTagTemplates(t *testing.T) {
	w := New(&blockingClient{}, fakeregistry.TestRepo, "t1")
	cfg := api.BuildTriggerConfig{
		BuildSource:    "https://github.com/quay/quay",
		TagTemplates:   []string{"", "template2", "template2", " template3 ", "   "},
		DockerfilePath: "/Dockerfile",
		Context:        "/",
	}
	require.NoError(t, w.Restore(cfg, "", StepReview))
	require.Equal(t, StepReview, w.Step())
	require.Equal(t, []string{"template2", "template3"}, w.Config().TagTemplates)
	// the caller's slice is left alone
	require.Equal(t, "", cfg.TagTemplates[0])
}

func TestWizard_RestoreBlankTemplateIsNoTaggingOption(t *testing.T) {
	w := New(&blockingClient{}, fakeregistry.TestRepo, "t1")
	cfg := api.BuildTriggerConfig{
		BuildSource:    "https://github.com/quay/quay",
		TagTemplates:   []string{""},
		DockerfilePath: "/Dockerfile",
		Context:        "/",
	}
	require.NoError(t, w.Restore(cfg, "", StepReview))
	require.Equal(t, StepTaggingOptions, w.Step())
	require.Empty(t, w.Config().TagTemplates)

	verr := w.Validate()
	require.NotNil(t, verr)
	require.Equal(t, MsgNoTaggingOption, verr.Message)
}

func TestValidateTagging_BlankTemplatesDoNotCount(t *testing.T) {
	verr := ValidateTagging(api.BuildTriggerConfig{TagTemplates: []string{"", "  "}})
	require.NotNil(t, verr)
	require.Equal(t, MsgNoTaggingOption, verr.Message)
	require.Nil(t, ValidateTagging(api.BuildTriggerConfig{TagTemplates: []string{"", "v1"}}))
}

func TestWizard_EditAfterAnalysisBlocksConfirm(t *testing.T) {
	w, fake := newFakeWizard(t, fakeregistry.PendingTriggerID)
	fillToReview(t, w)
	ctx := context.Background()

	_, err := w.Submit(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SetContextPath("/other"))

	_, err = w.Confirm(ctx)
	require.ErrorIs(t, err, ErrNoAnalysis)
	require.Equal(t, StepReview, w.Step())
	require.False(t, w.Busy())
	require.Empty(t, fake.RequestsMatching(http.MethodPost, "/activate"))
}
