package cmds

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-go-golems/registryctl/pkg/access"
	"github.com/go-go-golems/registryctl/pkg/api"
	"github.com/go-go-golems/registryctl/pkg/draft"
	"github.com/go-go-golems/registryctl/pkg/tagtemplate"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/go-go-golems/registryctl/pkg/wizard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var activateConfirmation = triggers.Confirmation{
	Title:  "Activate Build Trigger",
	Prompt: "Activate this build trigger with the configuration above?",
	Button: "Activate Trigger",
}

func newTriggersSetupCmd() *cobra.Command {
	var (
		repoURL        string
		dockerfile     string
		contextPath    string
		tagLatest      bool
		tagBranchOrTag bool
		templates      []string
		regex          string
		robot          string
		yes            bool
	)

	cmd := &cobra.Command{
		Use:   "setup <trigger-uuid>",
		Short: "Complete the setup of an incomplete build trigger",
		Long: "Collects the trigger configuration from flags (on top of any saved draft),\n" +
			"analyzes it and activates the trigger. Values that do not validate are saved\n" +
			"as a draft so the setup can be resumed here or in the TUI.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadTriggers(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := requireCapability(s.caps, access.RunWizard); err != nil {
				return err
			}
			r, err := s.row(args[0])
			if err != nil {
				return err
			}
			if r.State != triggers.StateIncomplete {
				return errors.Errorf("trigger %s is already set up", r.ID)
			}

			w := wizard.New(s.client, s.opts.Settings.Repo, r.ID)
			var cfg api.BuildTriggerConfig
			var pullRobot string
			d, err := draft.LoadOptional(s.opts.WorkDir, r.ID)
			if err != nil {
				return err
			}
			if d != nil {
				log.Debug().Str("trigger", r.ID).Str("step", d.Step).Msg("resuming setup draft")
				cfg, pullRobot = d.Config(), d.PullRobot
			}

			flags := cmd.Flags()
			if flags.Changed("repo-url") {
				cfg.BuildSource = repoURL
			}
			if flags.Changed("dockerfile-path") {
				cfg.DockerfilePath = dockerfile
			}
			if flags.Changed("context") {
				cfg.Context = contextPath
			}
			if flags.Changed("tag-with-latest") {
				cfg.LatestForDefaultBranch = tagLatest
			}
			if flags.Changed("tag-with-branch-or-tag") {
				cfg.DefaultTagFromRef = tagBranchOrTag
			}
			if flags.Changed("tag-template") {
				cfg.TagTemplates = templates
			}
			if flags.Changed("branch-tag-regex") {
				cfg.BranchTagRegex = regex
			}
			if flags.Changed("robot") {
				pullRobot = robot
			}

			reqCtx, cancel := s.opts.requestContext(cmd.Context())
			defer cancel()
			if pullRobot != "" {
				if err := checkRobot(reqCtx, w, pullRobot); err != nil {
					return err
				}
			}

			if err := w.Restore(cfg, pullRobot, wizard.StepReview); err != nil {
				return err
			}
			if w.Step() != wizard.StepReview {
				verr := w.Validate()
				if d, ok := draft.FromWizard(w); ok {
					if err := draft.Save(s.opts.WorkDir, d); err != nil {
						log.Warn().Err(err).Msg("save setup draft")
					}
				}
				if verr != nil {
					return errors.Wrapf(verr, "%s", w.Step().Title())
				}
				return errors.Errorf("setup stopped at %s", w.Step().Title())
			}

			out := cmd.OutOrStdout()
			writeSummary(out, w.Summary())
			writeTagPreview(out, cfg)
			if err := confirm(cmd, activateConfirmation, yes); err != nil {
				return err
			}

			ctx, cancelWrite := s.opts.requestContext(context.WithoutCancel(cmd.Context()))
			defer cancelWrite()
			if _, err := w.SubmitAndConfirm(ctx); err != nil {
				if d, ok := draft.FromWizard(w); ok {
					if serr := draft.Save(s.opts.WorkDir, d); serr != nil {
						log.Warn().Err(serr).Msg("save setup draft")
					}
				}
				return err
			}
			if err := draft.Remove(s.opts.WorkDir, r.ID); err != nil {
				log.Warn().Err(err).Msg("remove setup draft")
			}

			a, _ := w.Activation()
			_, _ = fmt.Fprintf(out, "\n%s\n\n", a.Message)
			writeCredentials(out, a.Credentials)
			_, _ = fmt.Fprintf(out, "\n%s\n", a.Note)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoURL, "repo-url", "", "Git repository URL to build from")
	cmd.Flags().StringVar(&dockerfile, "dockerfile-path", "", "Dockerfile path within the repository, e.g. /Dockerfile")
	cmd.Flags().StringVar(&contextPath, "context", "", "Build context path within the repository, e.g. /")
	cmd.Flags().BoolVar(&tagLatest, "tag-with-latest", false, "Tag manifest with latest if default branch")
	cmd.Flags().BoolVar(&tagBranchOrTag, "tag-with-branch-or-tag", false, "Tag manifest with the branch or tag name")
	cmd.Flags().StringArrayVar(&templates, "tag-template", nil, "Tag template, e.g. ${commit_info.short_sha} (repeatable)")
	cmd.Flags().StringVar(&regex, "branch-tag-regex", "", "Only build branches/tags matching this regex")
	cmd.Flags().StringVar(&robot, "robot", "", "Robot account used to pull base images")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func checkRobot(ctx context.Context, w *wizard.Wizard, name string) error {
	opts, err := w.LoadRobots(ctx)
	if err != nil {
		return errors.Wrap(err, "list robot accounts")
	}
	for _, o := range opts {
		if o.Name == name {
			if o.Note != "" {
				log.Info().Str("robot", name).Msg(o.Note)
			}
			return nil
		}
	}
	return errors.Errorf("unknown robot account %q", name)
}

func writeSummary(w io.Writer, rows []wizard.SummaryRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", r.Label, r.Value)
	}
	_ = tw.Flush()
}

func writeTagPreview(w io.Writer, cfg api.BuildTriggerConfig) {
	if len(cfg.TagTemplates) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "\nTag preview (sample push):")
	ev := tagtemplate.New(tagtemplate.Options{})
	for _, res := range ev.Preview(cfg.TagTemplates, tagtemplate.SampleMetadata(cfg.BuildSource)) {
		if res.Err != nil {
			_, _ = fmt.Fprintf(w, "  %s -> error: %v\n", res.Template, res.Err)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s -> %s\n", res.Template, res.Tag)
	}
}
