package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyline/pkg/pipeline"
)

// renderCommand creates the render command for drawing a script as a
// node-link diagram.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.Options{Scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [script.toml]",
		Short: "Render a dialogue script as a diagram",
		Long: `Render a dialogue script as a node-link diagram.

Every line becomes a box; jumps and choices become arrows. Conditional
jumps are listed in the box with --detailed. References to ids that no
line uses are drawn as red placeholders with --unresolved.

Results are cached, so rendering an unchanged script again is instant.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeScript,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := pipeline.ParseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts.Formats = formats
			return c.runRender(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "show speaker, text and variables in each box")
	cmd.Flags().BoolVar(&opts.Unresolved, "unresolved", false, "draw references to missing ids")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached artifacts")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runRender loads the script and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	ctx = withLogger(ctx, c.Logger)
	_, g, err := c.loadScript(ctx, input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spin := startSpinner(ctx, fmt.Sprintf("Rendering %d lines...", g.Len()))
	res, err := runner.Render(ctx, g, opts)
	if err != nil {
		spin.Fail("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spin.Stop()

	paths, err := writeArtifacts(res.Artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", input)
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.AllCached(opts.Formats))
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// writeArtifacts writes each format to its own file and returns the paths
// in format order. A single format with an explicit output path uses that
// path as-is.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	var paths []string
	for _, format := range formats {
		path := basePath(output, input) + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if slices.Contains(pipeline.ValidFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
