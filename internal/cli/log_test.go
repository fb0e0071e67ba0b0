package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		want    string
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("exported dialogue", "lines", 3) }, "exported dialogue"},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("edges recomputed", "count", 2) }, ""},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("edges recomputed", "count", 2) }, "edges recomputed"},
		{"warn at warn level", log.WarnLevel, func(l *log.Logger) { l.Warn("invalid JSON in set_var of Line 1") }, "set_var"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))

			got := buf.String()
			if tt.want == "" && got != "" {
				t.Errorf("unexpected output %q", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("output %q does not contain %q", got, tt.want)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Loaded intro.toml: 4 lines, 3 edges")

	got := buf.String()
	if !strings.Contains(got, "Loaded intro.toml: 4 lines, 3 edges (") {
		t.Errorf("output = %q, want message followed by elapsed time", got)
	}
	if !strings.Contains(got, "ms)") && !strings.Contains(got, "s)") {
		t.Errorf("output = %q, want a duration", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if got := loggerFromContext(ctx); got != custom {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	loggerFromContext(ctx).Info("replaying script", "path", "intro.toml")
	if !strings.Contains(buf.String(), "intro.toml") {
		t.Errorf("output = %q", buf.String())
	}
}
