package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/config"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	// WorkDir holds .registryctl.yaml and the .registryctl state dir.
	WorkDir  string
	Config   string
	Settings config.Settings
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("server", "", "Registry base URL, e.g. https://quay.io")
	root.PersistentFlags().String("namespace", "", "Repository namespace (organization or user)")
	root.PersistentFlags().String("repository", "", "Repository name")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to "+config.DefaultConfigFilename+" in the working directory)")
	root.PersistentFlags().Duration("timeout", 0, "Timeout for registry requests (default "+config.DefaultTimeout.String()+")")
	root.PersistentFlags().String("token", "", "OAuth token (defaults to $"+config.TokenEnvVar+")")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	flags := cmd.Root().PersistentFlags()

	workDir, err := os.Getwd()
	if err != nil {
		return rootOptions{}, errors.Wrap(err, "getwd")
	}

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(workDir)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(workDir, cfgPath)
	}
	f, err := config.LoadOptional(cfgPath)
	if err != nil {
		return rootOptions{}, err
	}

	o, err := overridesFromFlags(flags)
	if err != nil {
		return rootOptions{}, err
	}

	s, err := config.Resolve(f, o, os.Getenv)
	if err != nil {
		return rootOptions{}, err
	}
	if err := s.RequireRepo(); err != nil {
		return rootOptions{}, err
	}
	return rootOptions{WorkDir: workDir, Config: cfgPath, Settings: s}, nil
}

func overridesFromFlags(flags *pflag.FlagSet) (config.Overrides, error) {
	var o config.Overrides
	for name, dst := range map[string]*string{
		"server":     &o.Server,
		"namespace":  &o.Namespace,
		"repository": &o.Repository,
		"token":      &o.Token,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return o, err
		}
		*dst = v
	}
	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return o, err
	}
	if timeout < 0 {
		return o, errors.New("timeout must be > 0")
	}
	o.Timeout = timeout
	return o, nil
}

func newClient(opts rootOptions) (*api.Client, error) {
	return api.NewClient(opts.Settings.ClientOptions())
}

func (o rootOptions) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := o.Settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// capabilities looks up what the caller may do on the configured repository.
func capabilities(ctx context.Context, c *api.Client, opts rootOptions) (access.Set, error) {
	repo, err := c.GetRepository(ctx, opts.Settings.Repo)
	if err != nil {
		return nil, errors.Wrap(err, "get repository")
	}
	return access.Capabilities(access.RoleFor(*repo, opts.Settings.ReadOnly)), nil
}

func requireCapability(caps access.Set, c access.Capability) error {
	if !caps.Has(c) {
		return errors.Errorf("not permitted: %s requires admin access to the repository", c)
	}
	return nil
}

// confirm asks before a state-changing action. Without a terminal the action
// is refused unless --yes was given.
func confirm(cmd *cobra.Command, c triggers.Confirmation, yes bool) error {
	if yes {
		return nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return errors.Errorf("%s: refusing to run without --yes when stdin is not a terminal", c.Title)
	}
	return promptYes(in, cmd.ErrOrStderr(), c)
}

func promptYes(in io.Reader, out io.Writer, c triggers.Confirmation) error {
	_, _ = fmt.Fprintf(out, "%s\n%s [y/N] ", c.Title, c.Prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "read confirmation")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return errors.New("cancelled")
}
