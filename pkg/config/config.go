// Package config loads storyline settings from a TOML file.
//
// The default location follows the XDG base directory layout:
// $XDG_CONFIG_HOME/storyline/config.toml, falling back to
// ~/.config/storyline/config.toml. A missing default file is not an error;
// the built-in defaults apply.
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	g := dialogue.New(cfg.GraphOptions()...)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
)

// AppName names the config and cache directories.
const AppName = "storyline"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Defaults.
const (
	DefaultExportPath = "dialogue_export.json"
	DefaultRedisAddr  = "localhost:6379"
	DefaultCacheTTL   = 24 * time.Hour
	DefaultDatabase   = "storyline"
	DefaultCollection = "dialogues"
	DefaultServerAddr = ":8080"
)

// Config holds all settings.
type Config struct {
	ExportPath     string            `toml:"export_path"`
	StrictIDs      bool              `toml:"strict_ids"`
	StrictSpeakers bool              `toml:"strict_speakers"`
	Speakers       map[string]string `toml:"speakers"`

	Cache  Cache  `toml:"cache"`
	Mongo  Mongo  `toml:"mongo"`
	Server Server `toml:"server"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// Cache configures the render cache.
type Cache struct {
	Backend   string        `toml:"backend"`
	RedisAddr string        `toml:"redis_addr"`
	TTL       time.Duration `toml:"ttl"`
}

// Mongo configures the publish sink. An empty URI disables it.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Enabled reports whether a MongoDB URI is configured.
func (m Mongo) Enabled() bool { return m.URI != "" }

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ExportPath: DefaultExportPath,
		Speakers:   dialogue.DefaultRegistry(),
		Cache: Cache{
			Backend:   CacheFile,
			RedisAddr: DefaultRedisAddr,
			TTL:       DefaultCacheTTL,
		},
		Mongo: Mongo{
			Database:   DefaultDatabase,
			Collection: DefaultCollection,
		},
		Server: Server{Addr: DefaultServerAddr},
	}
}

// Load reads the config at path. An empty path means [DefaultPath], which
// may be absent. An explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if os.IsNotExist(err) {
		return nil, errs.New(errs.ErrCodeFileNotFound, "config file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	speakers := cfg.Speakers
	cfg.Speakers = nil

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if !md.IsDefined("speakers") {
		cfg.Speakers = speakers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if err := errs.ValidateExportPath(c.ExportPath); err != nil {
		return err
	}
	for _, name := range dialogue.Registry(c.Speakers).Names() {
		if err := errs.ValidateSpeakerName(name); err != nil {
			return err
		}
	}
	if c.StrictSpeakers && len(c.Speakers) == 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "strict_speakers requires at least one speaker")
	}

	backends := []string{CacheFile, CacheRedis, CacheNone}
	if !slices.Contains(backends, c.Cache.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown cache backend %q (want %s)",
			c.Cache.Backend, strings.Join(backends, ", "))
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	if c.Cache.TTL < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	if c.Mongo.Enabled() && (c.Mongo.Database == "" || c.Mongo.Collection == "") {
		return errs.New(errs.ErrCodeInvalidConfig, "mongo.database and mongo.collection are required when mongo.uri is set")
	}
	if c.Server.Addr == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "server.addr must not be empty")
	}
	return nil
}

// Registry returns the configured speaker registry.
func (c *Config) Registry() dialogue.Registry {
	return dialogue.Registry(c.Speakers)
}

// GraphOptions returns the graph options implied by the config.
func (c *Config) GraphOptions() []dialogue.GraphOption {
	opts := []dialogue.GraphOption{dialogue.WithSpeakers(c.Registry())}
	if c.StrictSpeakers {
		opts = append(opts, dialogue.WithStrictSpeakers())
	}
	return opts
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory (~/.cache/storyline/ or under
// $XDG_CACHE_HOME).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
