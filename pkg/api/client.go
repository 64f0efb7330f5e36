package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	APIPrefix = "/api/v1"

	DefaultBuildLimit  = 10
	DefaultRetryMax    = 3
	defaultRetryWait   = 250 * time.Millisecond
	maxErrorBodyLength = 4 << 10
)

type Options struct {
	// Server is the registry base URL, e.g. https://quay.example.com.
	Server string
	// Token is sent as a bearer token when set.
	Token string
	// RetryMax bounds retries of idempotent reads. Writes are never retried.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	HTTPClient   *http.Client
}

type ListBuildsOptions struct {
	Limit int
	Since *time.Time
}

// Client talks to the registry REST API.
type Client struct {
	base   *url.URL
	token  string
	reads  *retryablehttp.Client
	writes *retryablehttp.Client
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Server) == "" {
		return nil, errors.New("missing server URL")
	}
	base, err := url.Parse(strings.TrimRight(opts.Server, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse server URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("server URL %q must include scheme and host", opts.Server)
	}
	base.Path = strings.TrimRight(base.Path, "/") + APIPrefix

	retryMax := opts.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}
	waitMin, waitMax := opts.RetryWaitMin, opts.RetryWaitMax
	if waitMin <= 0 {
		waitMin = defaultRetryWait
	}
	if waitMax < waitMin {
		waitMax = 8 * waitMin
	}

	return &Client{
		base:   base,
		token:  opts.Token,
		reads:  newRetryClient(opts.HTTPClient, retryMax, waitMin, waitMax),
		writes: newRetryClient(opts.HTTPClient, 0, waitMin, waitMax),
	}, nil
}

func newRetryClient(hc *http.Client, retryMax int, waitMin, waitMax time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	if hc != nil {
		c.HTTPClient = hc
	}
	c.RetryMax = retryMax
	c.RetryWaitMin = waitMin
	c.RetryWaitMax = waitMax
	c.Logger = zerologAdapter{}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

func repoPath(repo RepoRef) string {
	return "/repository/" + url.PathEscape(repo.Namespace) + "/" + url.PathEscape(repo.Name)
}

func triggerPath(repo RepoRef, uuid string) string {
	return repoPath(repo) + "/trigger/" + url.PathEscape(uuid)
}

// ListBuilds fetches recent builds, optionally only those started after Since.
func (c *Client) ListBuilds(ctx context.Context, repo RepoRef, opts ListBuildsOptions) ([]Build, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBuildLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if opts.Since != nil {
		q.Set("since", strconv.FormatInt(opts.Since.Unix(), 10))
	}
	var out struct {
		Builds []Build `json:"builds"`
	}
	if err := c.get(ctx, repoPath(repo)+"/build/", q, &out); err != nil {
		return nil, err
	}
	if out.Builds == nil {
		out.Builds = []Build{}
	}
	return out.Builds, nil
}

func (c *Client) ListTriggers(ctx context.Context, repo RepoRef) ([]Trigger, error) {
	var out struct {
		Triggers []Trigger `json:"triggers"`
	}
	if err := c.get(ctx, repoPath(repo)+"/trigger/", nil, &out); err != nil {
		return nil, err
	}
	if out.Triggers == nil {
		out.Triggers = []Trigger{}
	}
	return out.Triggers, nil
}

func (c *Client) GetTrigger(ctx context.Context, repo RepoRef, uuid string) (*Trigger, error) {
	var out Trigger
	if err := c.get(ctx, triggerPath(repo, uuid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRepository(ctx context.Context, repo RepoRef) (*Repository, error) {
	q := url.Values{}
	q.Set("includeStats", "false")
	q.Set("includeTags", "false")
	var out Repository
	if err := c.get(ctx, repoPath(repo), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRobots lists the robot accounts of an organization along with their
// repository permissions.
func (c *Client) ListRobots(ctx context.Context, org string) ([]Entity, error) {
	q := url.Values{}
	q.Set("permissions", "true")
	q.Set("token", "false")
	var out struct {
		Robots []Entity `json:"robots"`
	}
	if err := c.get(ctx, "/organization/"+url.PathEscape(org)+"/robots", q, &out); err != nil {
		return nil, err
	}
	return out.Robots, nil
}

// ToggleTrigger sends exactly {"enabled": enabled}.
func (c *Client) ToggleTrigger(ctx context.Context, repo RepoRef, uuid string, enabled bool) error {
	return c.write(ctx, http.MethodPut, triggerPath(repo, uuid), toggleBody{Enabled: enabled}, nil)
}

func (c *Client) DeleteTrigger(ctx context.Context, repo RepoRef, uuid string) error {
	return c.write(ctx, http.MethodDelete, triggerPath(repo, uuid), nil, nil)
}

func (c *Client) AnalyzeTrigger(ctx context.Context, repo RepoRef, uuid string, cfg BuildTriggerConfig) (*Analysis, error) {
	var out Analysis
	if err := c.write(ctx, http.MethodPost, triggerPath(repo, uuid)+"/analyze", newAnalyzeBody(cfg), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivateTrigger finalizes a trigger. robot may be empty, in which case no
// pull_robot key is sent.
func (c *Client) ActivateTrigger(ctx context.Context, repo RepoRef, uuid string, cfg BuildTriggerConfig, robot string) (*Trigger, error) {
	var out Trigger
	if err := c.write(ctx, http.MethodPost, triggerPath(repo, uuid)+"/activate", newActivateBody(cfg, robot), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, c.reads, http.MethodGet, path, q, nil, out)
}

// write issues a mutating call. Once issued it is not cancelled by ctx: the
// caller may stop waiting but the server effect is allowed to complete.
func (c *Client) write(ctx context.Context, method, path string, body any, out any) error {
	return c.do(context.WithoutCancel(ctx), c.writes, method, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, hc *retryablehttp.Client, method, path string, q url.Values, body any, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var raw any
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		raw = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), raw)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Debug().Str("method", method).Str("path", path).Msg("registry request")
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return networkError(method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("registry request failed")
		return statusError(method, path, resp.StatusCode, string(b))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(method, path, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

// zerologAdapter routes retryablehttp's leveled logs into zerolog.
type zerologAdapter struct{}

var _ retryablehttp.LeveledLogger = zerologAdapter{}

func (zerologAdapter) format(msg string, kv ...interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for _, x := range kv {
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%v", x))
	}
	return b.String()
}

func (a zerologAdapter) Error(msg string, kv ...interface{}) { log.Error().Msg(a.format(msg, kv...)) }
func (a zerologAdapter) Info(msg string, kv ...interface{})  { log.Debug().Msg(a.format(msg, kv...)) }
func (a zerologAdapter) Debug(msg string, kv ...interface{}) { log.Trace().Msg(a.format(msg, kv...)) }
func (a zerologAdapter) Warn(msg string, kv ...interface{})  { log.Warn().Msg(a.format(msg, kv...)) }
