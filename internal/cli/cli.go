// Package cli implements the storyline command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/storyline/pkg/buildinfo"
	"github.com/matzehuels/storyline/pkg/cache"
	"github.com/matzehuels/storyline/pkg/config"
	"github.com/matzehuels/storyline/pkg/dialogue"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/observability"
	"github.com/matzehuels/storyline/pkg/pipeline"
	"github.com/matzehuels/storyline/pkg/script"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// stdoutPath selects standard output as the export target.
	stdoutPath = "-"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogFatal = log.FatalLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Storyline authors branching dialogue for games",
		Long: `Storyline builds branching dialogue: lines with speakers, up to three
choices, variable assignments and jumps. Dialogue is written as TOML scripts
or edited interactively, then exported as JSON for the game runtime.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.loadConfig() },
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/storyline/config.toml)")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.speakersCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration file and installs log hooks.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	if cfg.Path != "" {
		c.Logger.Debug("Loaded config", "path", cfg.Path)
	}
	observability.NewLogHooks(c.Logger).Register()
	return nil
}

// =============================================================================
// Graph Helpers
// =============================================================================

// graphOptions returns the configured graph options plus the CLI logger.
func (c *CLI) graphOptions() []dialogue.GraphOption {
	return append(c.Config.GraphOptions(), dialogue.WithLogger(c.Logger))
}

// loadScript replays the script at path into a new graph. A blank path
// yields an empty graph.
func (c *CLI) loadScript(ctx context.Context, path string) (*script.Script, *dialogue.Graph, error) {
	if path == "" {
		return &script.Script{}, dialogue.New(c.graphOptions()...), nil
	}
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	s, err := script.Load(path)
	if err != nil {
		return nil, nil, err
	}
	g, warnings, err := s.Build(c.graphOptions()...)
	if err != nil {
		return nil, nil, err
	}
	if len(warnings) > 0 {
		logger.Warnf("%d lines had malformed set_var or jump_if", len(warnings))
	}
	prog.done(fmt.Sprintf("Loaded %s: %d lines, %d edges", path, g.Len(), len(g.Edges())))
	return s, g, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cache, c.Logger)
	r.TTL = c.Config.Cache.TTL
	return r, nil
}

// newCache opens the configured cache backend. An unreachable Redis falls
// back to the file cache with a warning.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.Config.Cache.RedisAddr})
		if err == nil {
			return rc, nil
		}
		c.Logger.Warn("Redis unavailable, using file cache", "addr", c.Config.Cache.RedisAddr, "err", err)
	}
	dir, err := config.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Export Targets
// =============================================================================

// exportSink resolves the -o flag: "-" writes to stdout, empty uses the
// configured export path.
func (c *CLI) exportSink(output string) dio.Sink {
	switch output {
	case stdoutPath:
		return dio.NewWriterSink(os.Stdout, "stdout")
	case "":
		return dio.NewFileSink(c.Config.ExportPath)
	}
	return dio.NewFileSink(output)
}

// publishSink opens the configured MongoDB sink for the named dialogue.
func (c *CLI) publishSink(ctx context.Context, name string) (*dio.MongoSink, error) {
	m := c.Config.Mongo
	return dio.NewMongoSink(ctx, dio.MongoConfig{
		URI:        m.URI,
		Database:   m.Database,
		Collection: m.Collection,
		Name:       name,
	})
}

// scriptName returns the dialogue name used for publishing.
func scriptName(s *script.Script) string {
	if s != nil && s.Name != "" {
		return s.Name
	}
	return "untitled"
}
