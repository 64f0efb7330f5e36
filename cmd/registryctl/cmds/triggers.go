package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/tagtemplate"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newTriggersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "Manage the repository's build triggers",
	}
	cmd.AddCommand(
		newTriggersListCmd(),
		newTriggersShowCmd(),
		newTriggerActionCmd(triggers.ActionEnable, "Re-enable a disabled build trigger"),
		newTriggerActionCmd(triggers.ActionDisable, "Disable a build trigger"),
		newTriggerActionCmd(triggers.ActionDelete, "Delete a build trigger"),
		newTriggersCredentialsCmd(),
		newTriggersSetupCmd(),
	)
	return cmd
}

// triggerSession is a loaded trigger list plus what the caller may do with it.
type triggerSession struct {
	opts    rootOptions
	client  *api.Client
	manager *triggers.Manager
	caps    access.Set
	rows    []triggers.Row
}

func loadTriggers(ctx context.Context, cmd *cobra.Command) (*triggerSession, error) {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return nil, err
	}
	client, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	reqCtx, cancel := opts.requestContext(ctx)
	defer cancel()

	caps, err := capabilities(reqCtx, client, opts)
	if err != nil {
		return nil, err
	}
	m := triggers.NewManager(client, opts.Settings.Repo)
	list, err := m.Refresh(reqCtx)
	if err != nil {
		return nil, errors.Wrap(err, "list triggers")
	}
	return &triggerSession{
		opts:    opts,
		client:  client,
		manager: m,
		caps:    caps,
		rows:    triggers.Rows(list, caps),
	}, nil
}

func (s *triggerSession) row(id string) (triggers.Row, error) {
	for _, r := range s.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return triggers.Row{}, errors.Errorf("no build trigger %s in %s", id, s.opts.Settings.Repo)
}

type triggerJSON struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Service        string   `json:"service"`
	State          string   `json:"state"`
	Notice         string   `json:"notice,omitempty"`
	DockerfilePath string   `json:"dockerfile_path,omitempty"`
	Context        string   `json:"context,omitempty"`
	BranchTagRegex string   `json:"branch_tag_regex"`
	PullRobot      string   `json:"pull_robot"`
	TaggingOptions []string `json:"tagging_options"`
	Actions        []string `json:"actions"`
}

func toTriggerJSON(r triggers.Row) triggerJSON {
	actions := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, string(a))
	}
	return triggerJSON{
		ID:             r.ID,
		Name:           r.Name,
		Service:        string(r.Service),
		State:          string(r.State),
		Notice:         r.Notice,
		DockerfilePath: r.DockerfilePath,
		Context:        r.Context,
		BranchTagRegex: r.BranchTagRegex,
		PullRobot:      r.PullRobot,
		TaggingOptions: r.TaggingOptions,
		Actions:        actions,
	}
}

func newTriggersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List build triggers with their state and allowed actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadTriggers(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			out := make([]triggerJSON, 0, len(s.rows))
			for _, r := range s.rows {
				out = append(out, toTriggerJSON(r))
			}
			b, err := json.MarshalIndent(map[string]any{
				"repository": s.opts.Settings.Repo.String(),
				"triggers":   out,
			}, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal triggers")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

type tagPreviewJSON struct {
	Template string `json:"template"`
	Tag      string `json:"tag,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newTriggersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <trigger-uuid>",
		Short: "Show one build trigger and preview its tag templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadTriggers(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			r, err := s.row(args[0])
			if err != nil {
				return err
			}
			t, _ := s.manager.Get(r.ID)

			var templates []string
			if t.Config != nil {
				templates = t.Config.TagTemplates
			}
			previews := []tagPreviewJSON{}
			ev := tagtemplate.New(tagtemplate.Options{})
			for _, res := range ev.Preview(templates, tagtemplate.SampleMetadata(triggers.Source(t))) {
				p := tagPreviewJSON{Template: res.Template, Tag: res.Tag}
				if res.Err != nil {
					p.Error = res.Err.Error()
				}
				previews = append(previews, p)
			}

			b, err := json.MarshalIndent(map[string]any{
				"trigger":     toTriggerJSON(r),
				"tag_preview": previews,
			}, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal trigger")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

var actionCapability = map[triggers.Action]access.Capability{
	triggers.ActionEnable:  access.ToggleTrigger,
	triggers.ActionDisable: access.ToggleTrigger,
	triggers.ActionDelete:  access.DeleteTrigger,
}

func newTriggerActionCmd(a triggers.Action, short string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   string(a) + " <trigger-uuid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadTriggers(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := requireCapability(s.caps, actionCapability[a]); err != nil {
				return err
			}
			r, err := s.row(args[0])
			if err != nil {
				return err
			}
			if !r.Can(a) {
				return errors.Errorf("cannot %s trigger %s while it is %s", a, r.ID, r.State)
			}
			if c, ok := triggers.ConfirmationFor(a); ok {
				if err := confirm(cmd, c, yes); err != nil {
					return err
				}
			}

			// writes are not abandoned on interrupt
			ctx, cancel := s.opts.requestContext(context.WithoutCancel(cmd.Context()))
			defer cancel()
			notice, err := s.manager.Run(ctx, r.ID, a)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), notice)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newTriggersCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials <trigger-uuid>",
		Short: "Show the deploy key and webhook of an active trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadTriggers(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := requireCapability(s.caps, access.ViewCredentials); err != nil {
				return err
			}
			r, err := s.row(args[0])
			if err != nil {
				return err
			}
			if !r.Can(triggers.ActionViewCredentials) {
				return errors.Errorf("trigger %s has no credentials to show while it is %s", r.ID, r.State)
			}
			t, _ := s.manager.Get(r.ID)
			writeCredentials(cmd.OutOrStdout(), triggers.Credentials(t))
			return nil
		},
	}
}

func writeCredentials(w io.Writer, v triggers.CredentialsView) {
	_, _ = fmt.Fprintln(w, v.Intro)
	for _, l := range v.Lines {
		_, _ = fmt.Fprintln(w)
		if l.Instruction != "" {
			_, _ = fmt.Fprintln(w, l.Instruction)
		}
		_, _ = fmt.Fprintf(w, "%s:\n%s\n", l.Name, strings.TrimSpace(l.Value))
	}
	if v.Footer != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", v.Footer)
	}
}
