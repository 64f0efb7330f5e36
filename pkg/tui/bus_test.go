package tui

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/fakeregistry"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) all() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg{}, r.msgs...)
}

func findMsg[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := msgs[i].(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

func startBus(t *testing.T) (*Bus, *fakeregistry.Server, *recorder) {
	t.Helper()
	fake := fakeregistry.New()
	fake.Seed()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(api.Options{Server: srv.URL, RetryMax: 0})
	require.NoError(t, err)

	bus, err := NewInMemoryBus()
	require.NoError(t, err)
	rec := &recorder{}
	RegisterDomainToUITransformer(bus)
	RegisterUIActionRunner(bus, ActionDeps{
		Reader:   c,
		Triggers: triggers.NewManager(c, fakeregistry.TestRepo),
		Timeout:  5 * time.Second,
	})
	RegisterUIForwarder(bus, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	select {
	case <-bus.Router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	return bus, fake, rec
}

func TestActionRunner_RefreshPublishesSnapshots(t *testing.T) {
	bus, _, rec := startBus(t)
	require.NoError(t, PublishAction(bus.Publisher, ActionRequest{Kind: ActionRefresh}))

	require.Eventually(t, func() bool {
		msgs := rec.all()
		_, b := findMsg[BuildsSnapshotMsg](msgs)
		_, tr := findMsg[TriggersSnapshotMsg](msgs)
		return b && tr
	}, 5*time.Second, 10*time.Millisecond)

	msgs := rec.all()
	b, _ := findMsg[BuildsSnapshotMsg](msgs)
	require.Empty(t, b.Snapshot.Error)
	require.Equal(t, builds.WindowAll, b.Snapshot.Window)
	require.NotEmpty(t, b.Snapshot.Builds)

	tr, _ := findMsg[TriggersSnapshotMsg](msgs)
	require.Empty(t, tr.Snapshot.Error)
	require.Len(t, tr.Snapshot.Triggers, 4)
	require.True(t, tr.Snapshot.Role.IsAdmin)

	// successful polls stay out of the event log
	_, logged := findMsg[EventLogAppendMsg](msgs)
	require.False(t, logged)
}

func TestActionRunner_FailedFetchIsLogged(t *testing.T) {
	bus, fake, rec := startBus(t)
	fake.FailWith("GET", "/build/", 500)
	require.NoError(t, PublishAction(bus.Publisher, ActionRequest{Kind: ActionRefreshBuilds}))

	require.Eventually(t, func() bool {
		_, ok := findMsg[EventLogAppendMsg](rec.all())
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	msgs := rec.all()
	b, ok := findMsg[BuildsSnapshotMsg](msgs)
	require.True(t, ok)
	require.NotEmpty(t, b.Snapshot.Error)
	ev, _ := findMsg[EventLogAppendMsg](msgs)
	require.Equal(t, LogLevelError, ev.Entry.Level)
	require.Equal(t, "builds", ev.Entry.Source)
}

func TestActionRunner_TriggerAction(t *testing.T) {
	bus, fake, rec := startBus(t)
	require.NoError(t, PublishAction(bus.Publisher, ActionRequest{
		Kind:          ActionTrigger,
		Trigger:       fakeregistry.GitHubTriggerID,
		TriggerAction: triggers.ActionDisable,
	}))

	require.Eventually(t, func() bool {
		_, ok := findMsg[TriggerActionResultMsg](rec.all())
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	res, _ := findMsg[TriggerActionResultMsg](rec.all())
	require.Empty(t, res.Result.Error)
	require.Equal(t, triggers.DisabledNotice, res.Result.Notice)
	tr, _ := fake.Trigger(fakeregistry.TestRepo, fakeregistry.GitHubTriggerID)
	require.False(t, tr.Enabled)
}

func TestPublishAction_RejectsInvalid(t *testing.T) {
	bus, err := NewInMemoryBus()
	require.NoError(t, err)
	require.Error(t, PublishAction(bus.Publisher, ActionRequest{Kind: ActionTrigger}))
	require.Error(t, PublishAction(bus.Publisher, ActionRequest{Kind: "bogus"}))
}

func TestPoller_WaitsForReady(t *testing.T) {
	bus, _, rec := startBus(t)
	ready := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &Poller{Interval: time.Hour, Pub: bus.Publisher, Ready: ready}
	go func() { _ = p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, rec.all())

	close(ready)
	require.Eventually(t, func() bool {
		_, ok := findMsg[BuildsSnapshotMsg](rec.all())
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEnvelope_RejectsMissingTypeAndPayload(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"payload":{}}`))
	require.Error(t, err)

	env, err := DecodeEnvelope([]byte(`{"type":"builds.snapshot"}`))
	require.NoError(t, err)
	_, err = payloadOf[BuildsSnapshot](env)
	require.ErrorContains(t, err, "empty payload")

	env, err = DecodeEnvelope([]byte(`{"type":"builds.snapshot","payload":{"window":"24h","error":"boom"}}`))
	require.NoError(t, err)
	snap, err := payloadOf[BuildsSnapshot](env)
	require.NoError(t, err)
	require.Equal(t, "boom", snap.Error)
}
