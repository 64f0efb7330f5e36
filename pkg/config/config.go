package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = ".registryctl.yaml"
	TokenEnvVar           = "REGISTRYCTL_TOKEN"
	DefaultTimeout        = 30 * time.Second
)

type File struct {
	Server     string `yaml:"server,omitempty"`
	Namespace  string `yaml:"namespace,omitempty"`
	Repository string `yaml:"repository,omitempty"`
	Token      string `yaml:"token,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"`
	RetryMax   *int   `yaml:"retry_max,omitempty"`
	ReadOnly   bool   `yaml:"read_only,omitempty"`
}

func DefaultPath(root string) string {
	return filepath.Join(root, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// Overrides are values given on the command line. Empty fields leave the file
// value in place.
type Overrides struct {
	Server     string
	Namespace  string
	Repository string
	Token      string
	Timeout    time.Duration
}

// Settings is the resolved configuration a command runs with.
type Settings struct {
	Server   string
	Repo     api.RepoRef
	Token    string
	Timeout  time.Duration
	RetryMax int
	ReadOnly bool
}

// Resolve layers flags over the file, then the token env var, then defaults.
func Resolve(f *File, o Overrides, getenv func(string) string) (Settings, error) {
	if f == nil {
		f = &File{}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	s := Settings{
		Server:   pick(o.Server, f.Server),
		Repo:     api.RepoRef{Namespace: pick(o.Namespace, f.Namespace), Name: pick(o.Repository, f.Repository)},
		Token:    pick(o.Token, f.Token, getenv(TokenEnvVar)),
		Timeout:  DefaultTimeout,
		RetryMax: api.DefaultRetryMax,
		ReadOnly: f.ReadOnly,
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return Settings{}, errors.Wrap(err, "parse timeout")
		}
		s.Timeout = d
	}
	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	}
	if f.RetryMax != nil {
		if *f.RetryMax < 0 {
			return Settings{}, errors.New("retry_max must not be negative")
		}
		s.RetryMax = *f.RetryMax
	}
	return s, nil
}

// RequireRepo reports a usable error when no repository was configured.
func (s Settings) RequireRepo() error {
	if s.Server == "" {
		return errors.New("no registry server configured (use --server or set server in " + DefaultConfigFilename + ")")
	}
	if !s.Repo.Valid() {
		return errors.New("no repository configured (use --namespace and --repository)")
	}
	return nil
}

func (s Settings) ClientOptions() api.Options {
	return api.Options{Server: s.Server, Token: s.Token, RetryMax: s.RetryMax}
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
