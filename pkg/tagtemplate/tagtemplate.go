// Package tagtemplate previews build trigger tag templates such as
// "${commit_info.short_sha}" or "${parsed_ref.branch}-latest". Each ${...}
// expression is evaluated as JavaScript against the trigger metadata of a
// push.
package tagtemplate

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/pkg/errors"
)

var (
	ErrTimeout      = errors.New("tagtemplate: expression timeout")
	ErrUnterminated = errors.New("tagtemplate: unterminated ${")
	ErrUnset        = errors.New("tagtemplate: value is not set")
	ErrInvalidTag   = errors.New("tagtemplate: result is not a valid tag")
)

const DefaultTimeout = 100 * time.Millisecond

var tagPattern = regexp.MustCompile(`^[\w][\w.-]{0,127}$`)

type Options struct {
	Timeout time.Duration
}

// Evaluator owns one JS runtime. Calls are serialized.
type Evaluator struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	timeout time.Duration
}

func New(opts Options) *Evaluator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{vm: goja.New(), timeout: timeout}
}

type Result struct {
	Template string
	Tag      string
	Err      error
}

// Preview evaluates every template. Failures are reported per template.
func (e *Evaluator) Preview(templates []string, meta api.TriggerMetadata) []Result {
	out := make([]Result, 0, len(templates))
	for _, t := range templates {
		tag, err := e.Evaluate(t, meta)
		out = append(out, Result{Template: t, Tag: tag, Err: err})
	}
	return out
}

func (e *Evaluator) Evaluate(tmpl string, meta api.TriggerMetadata) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scope := e.vm.ToValue(Scope(meta)).ToObject(e.vm)

	var sb strings.Builder
	rest := tmpl
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:i])
		j := strings.Index(rest[i+2:], "}")
		if j < 0 {
			return "", ErrUnterminated
		}
		expr := strings.TrimSpace(rest[i+2 : i+2+j])
		v, err := e.eval(expr, scope)
		if err != nil {
			return "", err
		}
		sb.WriteString(v)
		rest = rest[i+2+j+1:]
	}

	tag := sb.String()
	if !tagPattern.MatchString(tag) {
		return "", errors.Wrapf(ErrInvalidTag, "%q", tag)
	}
	return tag, nil
}

// eval runs expr with the metadata fields as its only free variables.
func (e *Evaluator) eval(expr string, scope *goja.Object) (string, error) {
	if expr == "" {
		return "", errors.Wrap(ErrUnset, "empty expression")
	}
	fnVal, err := e.vm.RunString("(function(s) { with (s) { return (" + expr + "); } })")
	if err != nil {
		return "", errors.Wrapf(err, "compile %q", expr)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return "", errors.Errorf("compile %q", expr)
	}

	timer := time.AfterFunc(e.timeout, func() {
		e.vm.Interrupt(ErrTimeout)
	})
	defer timer.Stop()
	defer e.vm.ClearInterrupt()

	v, err := fn(goja.Undefined(), scope)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", ErrTimeout
		}
		return "", errors.Wrapf(err, "evaluate %q", expr)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", errors.Wrapf(ErrUnset, "%q", expr)
	}
	return v.String(), nil
}

// Scope is the variable set visible to template expressions.
func Scope(meta api.TriggerMetadata) map[string]any {
	sha := meta.CommitSHA
	if sha == "" {
		sha = meta.Commit
	}
	scope := map[string]any{
		"commit":         sha,
		"ref":            meta.Ref,
		"default_branch": meta.DefaultBranch,
		"git_url":        meta.GitURL,
	}

	parsed := map[string]any{}
	if ref, ok := builds.ParseRef(meta.Ref); ok {
		parsed[string(ref.Kind)] = ref.Name
		parsed["remote"] = "origin"
	}
	scope["parsed_ref"] = parsed

	info := map[string]any{"short_sha": builds.ShortSHA(sha)}
	if ci := meta.CommitInfo; ci != nil {
		info["url"] = ci.URL
		info["message"] = ci.Message
		info["date"] = ci.Date
		if ci.Author != nil {
			info["author"] = map[string]any{"username": ci.Author.Username, "url": ci.Author.URL}
		}
		if ci.Committer != nil {
			info["committer"] = map[string]any{"username": ci.Committer.Username, "url": ci.Committer.URL}
		}
	}
	scope["commit_info"] = info
	return scope
}

// SampleMetadata stands in for a push when no real build exists yet.
func SampleMetadata(gitURL string) api.TriggerMetadata {
	return api.TriggerMetadata{
		CommitSHA:     "0a1b2c3d4e5f60718293a4b5c6d7e8f901234567",
		Ref:           "refs/heads/main",
		DefaultBranch: "main",
		GitURL:        gitURL,
		CommitInfo: &api.CommitInfo{
			Message: "Sample commit",
			Author:  &api.Person{Username: "someuser"},
		},
	}
}
