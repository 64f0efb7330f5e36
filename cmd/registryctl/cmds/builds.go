package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-go-golems/glazed/pkg/cli"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/registryctl/pkg/builds"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newBuildsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builds",
		Short: "Recent builds of the repository",
	}
	cmd.AddCommand(newBuildsListCmd())
	return cmd
}

type BuildsListCommand struct {
	*glazedcmds.CommandDescription
	// cobra is the built command; the registry flags live on its root.
	cobra *cobra.Command
}

var _ glazedcmds.WriterCommand = (*BuildsListCommand)(nil)

type buildsListSettings struct {
	Window string `glazed.parameter:"window"`
	Output string `glazed.parameter:"output"`
}

func NewBuildsListCommand() (*BuildsListCommand, error) {
	windows := make([]string, 0, len(builds.Presets))
	for _, p := range builds.Presets {
		windows = append(windows, string(p.Window))
	}
	return &BuildsListCommand{
		CommandDescription: glazedcmds.NewCommandDescription(
			"list",
			glazedcmds.WithShort("List builds started within a time window"),
			glazedcmds.WithParents("builds"),
			glazedcmds.WithFlags(
				parameters.NewParameterDefinition(
					"window",
					parameters.ParameterTypeChoice,
					parameters.WithChoices(windows...),
					parameters.WithDefault(string(builds.WindowAll)),
					parameters.WithHelp("Time window: all (latest builds), 48h or 30d"),
				),
				parameters.NewParameterDefinition(
					"output",
					parameters.ParameterTypeChoice,
					parameters.WithChoices("text", "json"),
					parameters.WithDefault("text"),
					parameters.WithHelp("Output format"),
				),
			),
		),
	}, nil
}

type buildJSON struct {
	ID          string   `json:"id"`
	Phase       string   `json:"phase"`
	Status      string   `json:"status"`
	TriggeredBy string   `json:"triggered_by"`
	Kind        string   `json:"kind"`
	Message     string   `json:"message,omitempty"`
	Author      string   `json:"author,omitempty"`
	CommitURL   string   `json:"commit_url,omitempty"`
	RefURL      string   `json:"ref_url,omitempty"`
	Started     string   `json:"started"`
	Tags        []string `json:"tags"`
}

func (c *BuildsListCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &buildsListSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	window, err := builds.ParseWindow(s.Window)
	if err != nil {
		return err
	}

	opts, err := getRootOptions(c.cobra)
	if err != nil {
		return err
	}
	client, err := newClient(opts)
	if err != nil {
		return err
	}
	reqCtx, cancel := opts.requestContext(ctx)
	defer cancel()

	list, err := client.ListBuilds(reqCtx, opts.Settings.Repo, window.Query(time.Now()))
	if err != nil {
		return errors.Wrap(err, "list builds")
	}
	rows, err := builds.Rows(list)
	if err != nil {
		return err
	}

	if s.Output == "json" {
		out := make([]buildJSON, 0, len(rows))
		for _, r := range rows {
			out = append(out, buildJSON{
				ID:          r.ID,
				Phase:       string(r.Phase),
				Status:      r.Status,
				TriggeredBy: r.Description.Text,
				Kind:        string(r.Description.Kind),
				Message:     r.Description.Message,
				Author:      r.Description.Author,
				CommitURL:   r.Description.CommitURL,
				RefURL:      r.Description.RefURL,
				Started:     r.StartedText(nil),
				Tags:        r.Tags,
			})
		}
		b, err := json.MarshalIndent(map[string]any{"window": window, "builds": out}, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshal builds")
		}
		_, _ = fmt.Fprintln(w, string(b))
		return nil
	}
	return writeBuildsText(w, window, rows)
}

func writeBuildsText(w io.Writer, window builds.Window, rows []builds.Row) error {
	_, _ = fmt.Fprintf(w, "Filter: %s\n\n", window.Label())
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, builds.NoBuildsMessage)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD ID\tSTATUS\tTRIGGERED BY\tDATE STARTED\tTAGS")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", builds.ShortSHA(r.ID), r.Status, r.Description.Text, r.StartedText(nil), r.TagsText())
		if msg := r.Description.MessageText(false); msg != "" {
			_, _ = fmt.Fprintf(tw, "\t\t  %s\t\t\n", strings.ReplaceAll(msg, "\n", " "))
		}
	}
	return tw.Flush()
}

func newBuildsListCmd() *cobra.Command {
	c, err := NewBuildsListCommand()
	cobra.CheckErr(err)

	cmd, err := cli.BuildCobraCommand(c, cli.WithParserConfig(cli.CobraParserConfig{AppName: "registryctl"}))
	cobra.CheckErr(err)
	c.cobra = cmd
	return cmd
}
