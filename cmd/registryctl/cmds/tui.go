package cmds

import (
	"context"
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/go-go-golems/registryctl/pkg/tagtemplate"
	"github.com/go-go-golems/registryctl/pkg/triggers"
	"github.com/go-go-golems/registryctl/pkg/tui"
	"github.com/go-go-golems/registryctl/pkg/tui/models"
	"github.com/go-go-golems/registryctl/pkg/wizard"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTuiCmd() *cobra.Command {
	var refresh time.Duration
	var altScreen bool
	var window string
	var triggerID string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive console for builds and build triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			w, err := builds.ParseWindow(window)
			if err != nil {
				return err
			}
			return runTUI(cmd, tui.RootOptions{
				Settings:  opts.Settings,
				TriggerID: triggerID,
				DraftRoot: opts.WorkDir,
				Window:    w,
				Refresh:   refresh,
			}, altScreen)
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", tui.DefaultRefreshInterval, "Refresh interval for builds and triggers")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	cmd.Flags().StringVar(&window, "window", string(builds.WindowAll), "Initial build window: all, 48h or 30d")
	cmd.Flags().StringVar(&triggerID, "trigger", "", "Open the setup wizard for this trigger on start")
	return cmd
}

func runTUI(cmd *cobra.Command, o tui.RootOptions, altScreen bool) error {
	client, err := newClient(rootOptions{Settings: o.Settings})
	if err != nil {
		return err
	}
	repo := o.Settings.Repo

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bus, err := tui.NewInMemoryBus()
	if err != nil {
		return err
	}

	tui.RegisterDomainToUITransformer(bus)
	tui.RegisterUIActionRunner(bus, tui.ActionDeps{
		Reader:   client,
		Triggers: triggers.NewManager(client, repo),
		ReadOnly: o.Settings.ReadOnly,
		Window:   o.Window,
		Timeout:  o.Settings.Timeout,
	})

	eval := tagtemplate.New(tagtemplate.Options{})
	model := models.NewRootModel(models.RootModelOptions{
		Repo:     repo,
		ReadOnly: o.Settings.ReadOnly,
		Window:   o.Window,
		Publish: func(req tui.ActionRequest) error {
			return tui.PublishAction(bus.Publisher, req)
		},
		OpenWizard: func(id string) models.WizardModel {
			return models.NewWizardModel(ctx, wizard.New(client, repo, id), eval, o.DraftRoot)
		},
		InitialTrigger: o.TriggerID,
	})

	programOptions := []tea.ProgramOption{
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	}
	if altScreen {
		programOptions = append(programOptions, tea.WithAltScreen())
	}
	program := tea.NewProgram(model, programOptions...)
	tui.RegisterUIForwarder(bus, program)

	poller := &tui.Poller{
		Interval: o.Refresh,
		Pub:      bus.Publisher,
		Ready:    bus.Router.Running(),
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := bus.Run(egCtx)
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		err := poller.Run(egCtx)
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		_, err := program.Run()
		cancel()
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "tui")
	}
	return nil
}
