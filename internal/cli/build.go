package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyline/pkg/dialogue"
	"github.com/matzehuels/storyline/pkg/session"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	output  string // export path, "-" for stdout
	check   bool   // validate only, write nothing
	strict  bool   // reject duplicate ids
	publish bool   // also publish to MongoDB
}

// buildCommand creates the build command for exporting a script.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [script.toml]",
		Short: "Replay a dialogue script and export it as JSON",
		Long: `Replay a dialogue script and export it as JSON.

Each [[line]] in the script is added and edited in order, exactly as an
author would in the editor. Malformed set_var or jump_if text is reported
as a warning and exported as an empty mapping.

The export goes to the configured export_path unless -o is given.
Use -o - to write to stdout.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeScript,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "export file (default from config, - for stdout)")
	cmd.Flags().BoolVar(&opts.check, "check", false, "report problems without exporting")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail when several lines share an id")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "also publish to the configured MongoDB collection")

	return cmd
}

// runBuild replays the script and exports it.
func (c *CLI) runBuild(ctx context.Context, input string, opts buildOpts) error {
	ctx = withLogger(ctx, c.Logger)
	s, g, err := c.loadScript(ctx, input)
	if err != nil {
		return err
	}
	strict := opts.strict || c.Config.StrictIDs

	if opts.check {
		return reportCheck(g, strict)
	}
	if opts.output != stdoutPath {
		reportUnresolved(g)
	}

	var sessOpts []session.Option
	if strict {
		sessOpts = append(sessOpts, session.WithStrictIDs())
	}
	sessOpts = append(sessOpts, session.WithLogger(c.Logger))
	sess := session.New(g, sessOpts...)

	res, err := sess.Export(ctx, c.exportSink(opts.output))
	if err != nil {
		return err
	}
	if opts.output != stdoutPath {
		printSuccess("Exported %d lines", res.Lines)
		printFile(res.Sink)
	}

	if opts.publish {
		if err := c.publish(ctx, sess, scriptName(s)); err != nil {
			return err
		}
	}
	return nil
}

// publish exports the session to MongoDB.
func (c *CLI) publish(ctx context.Context, sess *session.Session, name string) error {
	if !c.Config.Mongo.Enabled() {
		return fmt.Errorf("--publish needs [mongo] uri in the config file")
	}
	sink, err := c.publishSink(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sink.Close(closeCtx)
	}()

	spin := startSpinner(ctx, "Publishing "+name+"...")
	res, err := sess.Export(ctx, sink)
	if err != nil {
		spin.Fail("Publish failed")
		return err
	}
	spin.Stop()
	printSuccess("Published %d lines", res.Lines)
	printDetail("%s", res.Sink)
	return nil
}

// reportCheck prints duplicate ids and unresolved references. Duplicates
// are an error in strict mode.
func reportCheck(g *dialogue.Graph, strict bool) error {
	printInfo("%d lines, %d edges", g.Len(), len(g.Edges()))
	dups := g.Duplicates()
	for _, id := range slices.Sorted(maps.Keys(dups)) {
		printWarning("id %q is used by %d lines; jumps go to the last one", id, len(dups[id]))
	}
	reportUnresolved(g)
	if strict {
		if err := g.CheckDuplicates(); err != nil {
			return err
		}
	}
	printSuccess("Script is valid")
	return nil
}

func reportUnresolved(g *dialogue.Graph) {
	for _, ref := range g.Unresolved() {
		printDetail("%s: %s points to missing id %q", ref.From.Label(), ref.Field, ref.Target)
	}
}
