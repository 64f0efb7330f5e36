package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RegistryReader is what the runner reads besides the trigger list.
type RegistryReader interface {
	ListBuilds(ctx context.Context, repo api.RepoRef, opts api.ListBuildsOptions) ([]api.Build, error)
	GetRepository(ctx context.Context, repo api.RepoRef) (*api.Repository, error)
}

var _ RegistryReader = (*api.Client)(nil)

type ActionDeps struct {
	Reader   RegistryReader
	Triggers *triggers.Manager
	ReadOnly bool
	Window   builds.Window
	Timeout  time.Duration
	Now      func() time.Time
}

type actionRunner struct {
	deps ActionDeps
	pub  message.Publisher

	mu     sync.Mutex
	window builds.Window
	role   access.Role
}

func RegisterUIActionRunner(bus *Bus, deps ActionDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Window == "" {
		deps.Window = builds.WindowAll
	}
	r := &actionRunner{deps: deps, pub: bus.Publisher, window: deps.Window}

	bus.Handle("registry-ui-actions", TopicUIActions, func(ctx context.Context, env Envelope) error {
		if env.Type != UITypeActionRequest {
			return nil
		}
		req, err := payloadOf[ActionRequest](env)
		if err != nil {
			_ = r.log(LogLevelWarn, "action: bad request (unmarshal failed)")
			return nil
		}
		if err := r.handle(ctx, req); err != nil {
			_ = r.log(LogLevelError, fmt.Sprintf("action failed: %s: %s", req.Kind, err.Error()))
		}
		return nil
	})
}

func (r *actionRunner) handle(ctx context.Context, req ActionRequest) error {
	switch req.Kind {
	case ActionRefresh:
		var g errgroup.Group
		g.Go(func() error { return r.refreshBuilds(ctx) })
		g.Go(func() error { return r.refreshTriggers(ctx) })
		return g.Wait()
	case ActionRefreshBuilds:
		return r.refreshBuilds(ctx)
	case ActionRefreshTriggers:
		return r.refreshTriggers(ctx)
	case ActionSetWindow:
		if _, err := builds.ParseWindow(string(req.Window)); err != nil {
			return err
		}
		r.mu.Lock()
		r.window = req.Window
		r.mu.Unlock()
		_ = r.log(LogLevelInfo, "builds: showing "+req.Window.Label())
		return r.refreshBuilds(ctx)
	case ActionTrigger:
		return r.runTriggerAction(ctx, req)
	}
	return errors.Errorf("unknown action: %s", req.Kind)
}

func (r *actionRunner) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.deps.Timeout > 0 {
		return context.WithTimeout(ctx, r.deps.Timeout)
	}
	return context.WithCancel(ctx)
}

// refreshBuilds publishes a snapshot even when the fetch fails so the build
// list can show its error state. The error is not returned.
func (r *actionRunner) refreshBuilds(ctx context.Context) error {
	r.mu.Lock()
	w := r.window
	r.mu.Unlock()

	ctx, cancel := r.readCtx(ctx)
	defer cancel()

	now := r.deps.Now()
	snap := BuildsSnapshot{At: now, Window: w}
	list, err := r.deps.Reader.ListBuilds(ctx, r.deps.Triggers.Repo(), w.Query(now))
	if err != nil {
		log.Warn().Err(err).Str("window", string(w)).Msg("list builds failed")
		snap.Error = err.Error()
	} else {
		snap.Builds = list
	}
	return publish(r.pub, TopicRegistryEvents, DomainTypeBuildsSnapshot, snap)
}

func (r *actionRunner) refreshTriggers(ctx context.Context) error {
	ctx, cancel := r.readCtx(ctx)
	defer cancel()

	repo := r.deps.Triggers.Repo()
	var (
		g       errgroup.Group
		repoRes *api.Repository
		repoErr error
		listErr error
	)
	g.Go(func() error {
		repoRes, repoErr = r.deps.Reader.GetRepository(ctx, repo)
		return nil
	})
	g.Go(func() error {
		_, listErr = r.deps.Triggers.Refresh(ctx)
		return nil
	})
	_ = g.Wait()

	if repoErr != nil {
		log.Warn().Err(repoErr).Str("repo", repo.String()).Msg("get repository failed")
	} else {
		r.mu.Lock()
		r.role = access.RoleFor(*repoRes, r.deps.ReadOnly)
		r.mu.Unlock()
	}

	snap := r.triggersSnapshot()
	if listErr != nil {
		snap.Error = listErr.Error()
	}
	return publish(r.pub, TopicRegistryEvents, DomainTypeTriggersSnapshot, snap)
}

func (r *actionRunner) triggersSnapshot() TriggersSnapshot {
	r.mu.Lock()
	role := r.role
	r.mu.Unlock()
	return TriggersSnapshot{At: r.deps.Now(), Triggers: r.deps.Triggers.Triggers(), Role: role}
}

// runTriggerAction issues the write detached from the request context: once
// sent, a toggle or delete is not abandoned.
func (r *actionRunner) runTriggerAction(ctx context.Context, req ActionRequest) error {
	_ = r.log(LogLevelInfo, fmt.Sprintf("trigger %s: %s", req.Trigger, req.TriggerAction))

	res := TriggerActionResult{Trigger: req.Trigger, Action: req.TriggerAction}
	notice, err := r.deps.Triggers.Run(context.WithoutCancel(ctx), req.Trigger, req.TriggerAction)
	res.At = r.deps.Now()
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Notice = notice
	}
	if err := publish(r.pub, TopicRegistryEvents, DomainTypeTriggerActionResult, res); err != nil {
		return err
	}
	return publish(r.pub, TopicRegistryEvents, DomainTypeTriggersSnapshot, r.triggersSnapshot())
}

func (r *actionRunner) log(level LogLevel, text string) error {
	return publish(r.pub, TopicRegistryEvents, DomainTypeActionLog, ActionLog{At: r.deps.Now(), Level: level, Text: text})
}
