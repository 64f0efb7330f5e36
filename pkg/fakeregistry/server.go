// Package fakeregistry is an in-memory registry API used by tests and the
// fake-registry test app. It implements the build and trigger endpoints the
// console consumes and records every request it sees.
package fakeregistry

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type repoState struct {
	repo     api.Repository
	builds   []api.Build
	triggers map[string]*api.Trigger
	order    []string
}

type Server struct {
	// Hostname is embedded in generated webhook URLs.
	Hostname string

	mu       sync.Mutex
	repos    map[string]*repoState
	robots   map[string][]api.Entity
	failures map[string]int
	requests []Request
	router   *httprouter.Router
}

func New() *Server {
	s := &Server{
		Hostname: "localhost:8080",
		repos:    map[string]*repoState{},
		robots:   map[string][]api.Entity{},
		failures: map[string]int{},
	}

	r := httprouter.New()
	p := api.APIPrefix
	r.GET(p+"/repository/:namespace/:repo", s.handleGetRepository)
	r.GET(p+"/repository/:namespace/:repo/build/", s.handleListBuilds)
	r.GET(p+"/repository/:namespace/:repo/trigger/", s.handleListTriggers)
	r.GET(p+"/repository/:namespace/:repo/trigger/:uuid", s.handleGetTrigger)
	r.PUT(p+"/repository/:namespace/:repo/trigger/:uuid", s.handleToggleTrigger)
	r.DELETE(p+"/repository/:namespace/:repo/trigger/:uuid", s.handleDeleteTrigger)
	r.POST(p+"/repository/:namespace/:repo/trigger/:uuid/analyze", s.handleAnalyze)
	r.POST(p+"/repository/:namespace/:repo/trigger/:uuid/activate", s.handleActivate)
	r.GET(p+"/organization/:org/robots", s.handleListRobots)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	status, fail := s.failureFor(r.Method, r.URL.Path)
	s.mu.Unlock()

	log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("fake registry request")
	if fail {
		w.WriteHeader(status)
		return
	}
	s.router.ServeHTTP(w, r)
}

// FailWith makes every request whose method matches and whose path ends with
// suffix answer with status until ClearFailures is called.
func (s *Server) FailWith(method, suffix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+suffix] = status
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]int{}
}

func (s *Server) failureFor(method, path string) (int, bool) {
	for k, status := range s.failures {
		m, suffix, _ := strings.Cut(k, " ")
		if m == method && strings.HasSuffix(path, suffix) {
			return status, true
		}
	}
	return 0, false
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request{}, s.requests...)
}

// RequestsMatching returns recorded requests with the given method whose path
// ends with suffix.
func (s *Server) RequestsMatching(method, suffix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) AddRepository(repo api.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateFor(repo.Namespace, repo.Name).repo = repo
}

func (s *Server) AddBuild(ref api.RepoRef, b api.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateFor(ref.Namespace, ref.Name)
	st.builds = append(st.builds, b)
}

func (s *Server) AddTrigger(ref api.RepoRef, t api.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateFor(ref.Namespace, ref.Name)
	if _, ok := st.triggers[t.ID]; !ok {
		st.order = append(st.order, t.ID)
	}
	tt := t
	st.triggers[t.ID] = &tt
}

func (s *Server) AddRobot(org string, e api.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots[org] = append(s.robots[org], e)
}

func (s *Server) Trigger(ref api.RepoRef, id string) (api.Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.repos[ref.String()]
	if !ok {
		return api.Trigger{}, false
	}
	t, ok := st.triggers[id]
	if !ok {
		return api.Trigger{}, false
	}
	return *t, true
}

func (s *Server) stateFor(namespace, name string) *repoState {
	key := namespace + "/" + name
	st, ok := s.repos[key]
	if !ok {
		st = &repoState{
			repo:     api.Repository{Namespace: namespace, Name: name, CanWrite: true, CanAdmin: true},
			triggers: map[string]*api.Trigger{},
		}
		s.repos[key] = st
	}
	return st
}

func (s *Server) lookup(ps httprouter.Params) (*repoState, bool) {
	st, ok := s.repos[ps.ByName("namespace")+"/"+ps.ByName("repo")]
	return st, ok
}

func (s *Server) handleGetRepository(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lookup(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "repository not found")
		return
	}
	writeJSON(w, http.StatusOK, st.repo)
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lookup(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "repository not found")
		return
	}

	limit := api.DefaultBuildLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		t := time.Unix(n, 0)
		since = &t
	}

	builds := make([]api.Build, 0, len(st.builds))
	for _, b := range st.builds {
		if since != nil {
			if started, err := dateparse.ParseAny(b.Started); err == nil && started.Before(*since) {
				continue
			}
		}
		builds = append(builds, b)
		if len(builds) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"builds": builds})
}

func (s *Server) handleListTriggers(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lookup(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "repository not found")
		return
	}
	triggers := make([]api.Trigger, 0, len(st.order))
	for _, id := range st.order {
		triggers = append(triggers, *st.triggers[id])
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggers": triggers})
}

func (s *Server) handleGetTrigger(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggerFor(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleToggleTrigger(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	raw, ok := body["enabled"]
	if !ok || len(body) != 1 {
		writeError(w, http.StatusBadRequest, "expected exactly {enabled}")
		return
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		writeError(w, http.StatusBadRequest, "enabled must be a boolean")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggerFor(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	}
	t.Enabled = enabled
	if enabled {
		t.DisabledReason = ""
	} else {
		t.DisabledReason = api.DisabledUserToggled
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTrigger(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lookup(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "repository not found")
		return
	}
	id := ps.ByName("uuid")
	if _, ok := st.triggers[id]; !ok {
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	}
	delete(st.triggers, id)
	order := st.order[:0]
	for _, v := range st.order {
		if v != id {
			order = append(order, v)
		}
	}
	st.order = order
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Config struct {
			BuildSource    string `json:"build_source"`
			Context        string `json:"context"`
			DockerfilePath string `json:"dockerfile_path"`
		} `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.triggerFor(ps); !ok {
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	}
	ns := ps.ByName("namespace")
	robots := append([]api.Entity{}, s.robots[ns]...)
	sort.Slice(robots, func(i, j int) bool { return robots[i].Name < robots[j].Name })

	status, message := "analyzed", ""
	if body.Config.BuildSource == "" {
		status, message = "error", "Missing build source"
	}
	writeJSON(w, http.StatusOK, api.Analysis{
		Namespace: ns,
		Name:      ps.ByName("repo"),
		Robots:    robots,
		Status:    status,
		Message:   message,
		IsAdmin:   true,
	})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Config    api.TriggerConfig `json:"config"`
		PullRobot string            `json:"pull_robot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggerFor(ps)
	if !ok {
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	}
	if t.IsActive {
		writeError(w, http.StatusBadRequest, "trigger already activated")
		return
	}

	cfg := body.Config
	cfg.Credentials = []api.Credential{{Name: "SSH Public Key", Value: "ssh-rsa fakekey " + t.ID}}
	if t.Service == api.ServiceCustomGit {
		cfg.Credentials = append(cfg.Credentials, api.Credential{
			Name:  "Webhook Endpoint URL",
			Value: "https://$token:faketoken@" + s.Hostname + "/webhooks/push/trigger/" + t.ID,
		})
	}
	t.Config = &cfg
	t.BuildSource = cfg.BuildSource
	t.IsActive = true
	t.Enabled = true
	t.DisabledReason = ""
	t.PullRobot = nil
	if body.PullRobot != "" {
		t.PullRobot = &api.Entity{Name: body.PullRobot, Kind: "user", IsRobot: true}
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListRobots(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	robots := s.robots[ps.ByName("org")]
	if robots == nil {
		robots = []api.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"robots": robots})
}

func (s *Server) triggerFor(ps httprouter.Params) (*api.Trigger, bool) {
	st, ok := s.lookup(ps)
	if !ok {
		return nil, false
	}
	t, ok := st.triggers[ps.ByName("uuid")]
	return t, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": status, "error_message": msg, "detail": msg})
}
