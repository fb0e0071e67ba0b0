package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyline/internal/server"
	dio "github.com/matzehuels/storyline/pkg/io"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [script.toml]",
		Short: "Serve a dialogue over an HTTP JSON API",
		Long: `Serve a dialogue over an HTTP JSON API for web front ends.

The dialogue starts from the given script, or empty. POST /api/export writes
to MongoDB when [mongo] is configured, otherwise to the export file.
GET /api/events long-polls for edge changes.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeScript,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), input, addr, output, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export file (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable render caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr, output string, noCache bool) error {
	ctx = withLogger(ctx, c.Logger)
	s, g, err := c.loadScript(ctx, input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var sink dio.Sink = c.exportSink(output)
	if c.Config.Mongo.Enabled() && output == "" {
		ms, err := c.publishSink(ctx, scriptName(s))
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Close(closeCtx)
		}()
		sink = ms
	}

	srv := server.New(g, server.Config{
		Sink:      sink,
		Runner:    runner,
		StrictIDs: c.Config.StrictIDs,
		Logger:    c.Logger,
	})

	printInfo("Serving %d lines on %s", g.Len(), addr)
	printDetail("Exports go to %s", sink.Name())
	printNextStep("Try", fmt.Sprintf("curl http://localhost%s/api/nodes", portOf(addr)))
	return srv.ListenAndServe(ctx, addr)
}

// portOf returns the ":port" suffix of addr.
func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ":" + addr
}
