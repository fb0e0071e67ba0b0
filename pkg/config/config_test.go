package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/storyline/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.ExportPath != "dialogue_export.json" {
		t.Errorf("ExportPath = %q", cfg.ExportPath)
	}
	if !cfg.Registry().Has("stan") || !cfg.Registry().Has("mabel") {
		t.Errorf("default speakers = %v", cfg.Speakers)
	}
	if cfg.Mongo.Enabled() {
		t.Error("mongo should be disabled by default")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
export_path = "out/lines.json"
strict_speakers = true

[speakers]
narrator = "res://characters/Narrator/portrait.png"

[cache]
backend = "redis"
redis_addr = "cache:6379"
ttl = "90m"

[mongo]
uri = "mongodb://localhost:27017"

[server]
addr = "127.0.0.1:9000"
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.ExportPath != "out/lines.json" || !cfg.StrictSpeakers {
		t.Errorf("top-level fields = %+v", cfg)
	}
	if len(cfg.Speakers) != 1 || !cfg.Registry().Has("narrator") {
		t.Errorf("speakers should replace defaults, got %v", cfg.Speakers)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisAddr != "cache:6379" || cfg.Cache.TTL != 90*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if !cfg.Mongo.Enabled() || cfg.Mongo.Database != DefaultDatabase || cfg.Mongo.Collection != DefaultCollection {
		t.Errorf("mongo = %+v", cfg.Mongo)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(cfg.GraphOptions()) != 2 {
		t.Errorf("GraphOptions() should include strict speakers")
	}
}

func TestParseKeepsDefaultSpeakers(t *testing.T) {
	cfg, err := Parse([]byte(`strict_ids = true`))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.StrictIDs || !cfg.Registry().Has("dipper") {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `export_path = `},
		{"unknown key", `exportpath = "x.json"`},
		{"unknown section key", "[cache]\nbackends = \"file\""},
		{"bad backend", "[cache]\nbackend = \"memcached\""},
		{"redis without addr", "[cache]\nbackend = \"redis\"\nredis_addr = \"\""},
		{"negative ttl", "[cache]\nttl = \"-1h\""},
		{"bad speaker", "[speakers]\n\"grunkle stan\" = \"x\""},
		{"strict without speakers", "strict_speakers = true\n[speakers]\n"},
		{"empty export path", `export_path = ""`},
		{"mongo without database", "[mongo]\nuri = \"mongodb://x\"\ndatabase = \"\""},
		{"empty server addr", "[server]\naddr = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse should fail")
			}
			if errs.GetCode(err) == "" {
				t.Errorf("error should carry a code: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`export_path = "x.json"`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ExportPath != "x.json" || cfg.Path != path {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a config file: %v", err)
	}
	if cfg.Path != "" || cfg.ExportPath != DefaultExportPath {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}

	path := filepath.Join(dir, AppName, "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9999\""), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" || cfg.Path != path {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	if p, _ := DefaultPath(); p != filepath.Join("/tmp/xdg-config", AppName, "config.toml") {
		t.Errorf("DefaultPath() = %q", p)
	}
	if p, _ := CacheDir(); p != filepath.Join("/tmp/xdg-cache", AppName) {
		t.Errorf("CacheDir() = %q", p)
	}

	t.Setenv("XDG_CACHE_HOME", "")
	home, _ := os.UserHomeDir()
	if p, _ := CacheDir(); p != filepath.Join(home, ".cache", AppName) {
		t.Errorf("CacheDir() without XDG = %q", p)
	}
}
