package io

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
)

func sampleRecords() []dialogue.Record {
	g := dialogue.New()
	a := g.AddNode()
	b := g.AddNode()
	_, _ = g.UpdateNode(a, dialogue.Update{
		ID:      dialogue.String("intro"),
		Speaker: dialogue.String("stan"),
		Text:    dialogue.String("Hey & welcome <friend>"),
		Jump:    dialogue.String("B"),
	})
	_, _ = g.UpdateNode(b, dialogue.Update{
		ID:      dialogue.String("B"),
		Options: [dialogue.SlotCount]*dialogue.OptionEdit{dialogue.SlotA: {Text: "Leave"}},
	})
	return g.Export()
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(sampleRecords(), &buf); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	want := `[
  {
    "id": "intro",
    "speaker": "stan",
    "text": "Hey & welcome <friend>",
    "jump": "B"
  },
  {
    "id": "B",
    "text": "",
    "optionA": {
      "text": "Leave"
    }
  }
]
`
	if buf.String() != want {
		t.Errorf("WriteJSON() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(nil, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("WriteJSON(nil) = %q, want []", buf.String())
	}
}

func TestFileSinkReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialogue_export.json")
	if err := os.WriteFile(path, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	want, err := MarshalJSON(sampleRecords())
	if err != nil {
		t.Fatal(err)
	}
	if err := NewFileSink(path).Write(context.Background(), want); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want) {
		t.Errorf("file content differs from MarshalJSON output")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestMarshalJSONUnencodable(t *testing.T) {
	bad := []dialogue.Record{{Text: "x", SetVars: map[string]any{"inf": math.Inf(1)}}}
	if _, err := MarshalJSON(bad); err == nil {
		t.Fatal("MarshalJSON should fail on unencodable values")
	}
}

func TestFileSinkMissingDirectoryLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "out.json")
	if err := NewFileSink(path).Write(context.Background(), []byte("[]\n")); err == nil {
		t.Error("Write into a missing directory should fail")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files created on failure: %d entries", len(entries))
	}
}

func TestFileSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewFileSink(filepath.Join(dir, "out.json"))
	if err := s.Write(ctx, []byte("[]\n")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if s.Name() != filepath.Join(dir, "out.json") {
		t.Errorf("Name() = %q", s.Name())
	}

	bad := NewFileSink(filepath.Join(dir, "nope", "out.json"))
	err := bad.Write(ctx, []byte("[]\n"))
	if !errs.Is(err, errs.ErrCodeExportFailed) {
		t.Errorf("Write() error = %v, want EXPORT_FAILED", err)
	}

	invalid := NewFileSink("")
	if err := invalid.Write(ctx, nil); !errs.Is(err, errs.ErrCodeInvalidPath) {
		t.Errorf("Write() error = %v, want INVALID_PATH", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriterSink(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	s := NewWriterSink(&buf, "stdout")
	if err := s.Write(ctx, []byte("[]\n")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("buffer = %q", buf.String())
	}

	failing := NewWriterSink(failingWriter{}, "")
	if failing.Name() != "stream" {
		t.Errorf("Name() = %q, want stream", failing.Name())
	}
	if err := failing.Write(ctx, []byte("x")); !errs.Is(err, errs.ErrCodeExportFailed) {
		t.Errorf("Write() error = %v, want EXPORT_FAILED", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Write(cancelled, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() on cancelled context = %v", err)
	}
}
