package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/observability"
)

type failingSink struct{ calls int }

func (s *failingSink) Name() string { return "broken" }

func (s *failingSink) Write(context.Context, []byte) error {
	s.calls++
	return errors.New("disk full")
}

func TestSelectFlushesPreviousBuffer(t *testing.T) {
	s := New(dialogue.New())
	a := s.Add()
	b := s.Add()

	if _, err := s.Select(a); err != nil {
		t.Fatal(err)
	}
	s.Buffer().ID = "intro"
	s.Buffer().Jump = "B"
	if !s.Dirty() {
		t.Error("buffer should be dirty after editing")
	}

	if _, err := s.Select(b); err != nil {
		t.Fatal(err)
	}
	if a.ID != "intro" || a.Jump != "B" {
		t.Errorf("edits to a were not flushed: id=%q jump=%q", a.ID, a.Jump)
	}
	if s.Selected() != b || s.Buffer().ID != "" {
		t.Errorf("selection = %v, buffer = %+v", s.Selected(), s.Buffer())
	}

	s.Buffer().ID = "B"
	if _, err := s.Deselect(); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != nil || s.Buffer() != nil {
		t.Error("Deselect should clear the selection")
	}
	if edges := s.Graph().Edges(); len(edges) != 1 || edges[0].To != b {
		t.Errorf("edges = %v, want intro -> B", edges)
	}
}

func TestBufferMirrorsNode(t *testing.T) {
	g := dialogue.New()
	n := g.AddNode()
	_, _ = g.UpdateNode(n, dialogue.Update{
		Speaker: dialogue.String("mabel"),
		SetVars: dialogue.String(`{"sweater": 3}`),
		Options: [dialogue.SlotCount]*dialogue.OptionEdit{dialogue.SlotC: {Text: "Bye", Jump: "end"}},
	})

	b := LoadBuffer(n)
	if b.Speaker != "mabel" || b.SetVars != `{"sweater":3}` || b.JumpIf != "{}" {
		t.Errorf("buffer = %+v", b)
	}
	if b.Options[dialogue.SlotC] != (OptionBuffer{Text: "Bye", Jump: "end"}) {
		t.Errorf("option C = %+v", b.Options[dialogue.SlotC])
	}

	if v, ok := b.Get("optionC.jump"); !ok || v != "end" {
		t.Errorf("Get(optionC.jump) = %q, %v", v, ok)
	}
	if !b.Set("optionA.text", "Hi") || b.Options[dialogue.SlotA].Text != "Hi" {
		t.Error("Set(optionA.text) did not update the buffer")
	}
	if b.Set("optionD.text", "x") {
		t.Error("Set should reject unknown fields")
	}
	if len(Fields()) != 12 {
		t.Errorf("Fields() = %v", Fields())
	}
	for _, f := range Fields() {
		if _, ok := b.Get(f); !ok {
			t.Errorf("Get(%q) should succeed", f)
		}
	}
}

func TestFlushWarningsReloadBuffer(t *testing.T) {
	s := New(dialogue.New())
	n := s.Add()
	_, _ = s.Select(n)
	s.Buffer().JumpIf = "not valid json"

	warnings, err := s.Flush()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || warnings[0].Code != errs.ErrCodeInvalidConditions {
		t.Fatalf("warnings = %v", warnings)
	}
	if s.Buffer().JumpIf != "{}" {
		t.Errorf("buffer jump_if = %q, want reset mapping", s.Buffer().JumpIf)
	}
	if s.Dirty() {
		t.Error("buffer should match the node after a flush")
	}
}

func TestSelectKeepsSelectionOnHardError(t *testing.T) {
	s := New(dialogue.New(dialogue.WithStrictSpeakers()))
	a := s.Add()
	b := s.Add()
	_, _ = s.Select(a)
	s.Buffer().Speaker = "soos"

	if _, err := s.Select(b); !errs.Is(err, errs.ErrCodeUnknownSpeaker) {
		t.Fatalf("Select error = %v, want UNKNOWN_SPEAKER", err)
	}
	if s.Selected() != a || s.Buffer().Speaker != "soos" {
		t.Error("a failed flush must keep the selection and buffer")
	}

	if _, err := s.Select(dialogue.NewNode("stray")); !errs.Is(err, errs.ErrCodeNodeNotFound) {
		t.Errorf("Select(stray) error = %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := New(dialogue.New())
	if s.Remove() {
		t.Error("Remove without selection should report false")
	}

	a := s.Add()
	_, _ = s.Select(a)
	s.Buffer().Text = "discarded"
	if !s.Remove() {
		t.Fatal("Remove should remove the selected line")
	}
	if s.Graph().Len() != 0 || s.Selected() != nil {
		t.Errorf("Len() = %d, selected = %v", s.Graph().Len(), s.Selected())
	}
}

func TestExportFlushesFirst(t *testing.T) {
	s := New(dialogue.New())
	n := s.Add()
	_, _ = s.Select(n)
	s.Buffer().Text = "Hello"
	s.Buffer().SetVars = `{"greeted": true}`

	var buf bytes.Buffer
	res, err := s.Export(context.Background(), dio.NewWriterSink(&buf, "stdout"))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}

	want := "[\n  {\n    \"text\": \"Hello\",\n    \"set_var\": {\n      \"greeted\": true\n    }\n  }\n]\n"
	if buf.String() != want {
		t.Errorf("export =\n%s\nwant\n%s", buf.String(), want)
	}
	if res.Lines != 1 || res.Bytes != len(want) || res.Sink != "stdout" {
		t.Errorf("result = %+v", res)
	}
}

func TestExportKeepsIDWithWhitespace(t *testing.T) {
	s := New(dialogue.New())
	n := s.Add()
	_, _ = s.Select(n)
	s.Buffer().ID = "after choice"
	s.Buffer().Text = "Hello"

	var buf bytes.Buffer
	res, err := s.Export(context.Background(), dio.NewWriterSink(&buf, "stdout"))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}

	want := "[\n  {\n    \"id\": \"after choice\",\n    \"text\": \"Hello\"\n  }\n]\n"
	if buf.String() != want {
		t.Errorf("export =\n%s\nwant\n%s", buf.String(), want)
	}
	if n.ID != "after choice" || n.Text != "Hello" {
		t.Errorf("node = %q, %q", n.ID, n.Text)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != errs.ErrCodeInvalidNodeID {
		t.Errorf("warnings = %v, want one INVALID_NODE_ID", res.Warnings)
	}
}

func TestExportFailureKeepsGraphEditable(t *testing.T) {
	s := New(dialogue.New())
	n := s.Add()
	_, _ = s.Select(n)
	s.Buffer().Text = "kept"

	sink := &failingSink{}
	_, err := s.Export(context.Background(), sink)
	if !errs.Is(err, errs.ErrCodeExportFailed) {
		t.Fatalf("Export error = %v, want EXPORT_FAILED", err)
	}
	if sink.calls != 1 {
		t.Errorf("sink called %d times, want exactly one attempt", sink.calls)
	}
	if n.Text != "kept" {
		t.Error("buffer should have been flushed before the write")
	}

	s.Buffer().Text = "still editable"
	if _, err := s.Flush(); err != nil || n.Text != "still editable" {
		t.Errorf("graph not editable after failed export: %v", err)
	}
}

func TestExportStrictDuplicates(t *testing.T) {
	g := dialogue.New()
	for range 2 {
		n := g.AddNode()
		_, _ = g.UpdateNode(n, dialogue.Update{ID: dialogue.String("dup")})
	}

	var buf bytes.Buffer
	strict := New(g, WithStrictIDs())
	if _, err := strict.Export(context.Background(), dio.NewWriterSink(&buf, "")); !errs.Is(err, errs.ErrCodeDuplicateID) {
		t.Errorf("strict Export error = %v, want DUPLICATE_ID", err)
	}
	if buf.Len() != 0 {
		t.Error("strict export should not write anything")
	}

	if _, err := New(g).Export(context.Background(), dio.NewWriterSink(&buf, "")); err != nil {
		t.Errorf("lenient Export error = %v", err)
	}
}

type recordingExportHooks struct {
	observability.NoopExportHooks
	started, completed int
	lastErr            error
}

func (h *recordingExportHooks) OnExportStart(context.Context, string, int) { h.started++ }

func (h *recordingExportHooks) OnExportComplete(_ context.Context, _ string, _, _ int, _ time.Duration, err error) {
	h.completed++
	h.lastErr = err
}

func TestExportHooks(t *testing.T) {
	hooks := &recordingExportHooks{}
	observability.SetExportHooks(hooks)
	defer observability.Reset()

	s := New(dialogue.New())
	s.Add()
	_, _ = s.Export(context.Background(), &failingSink{})

	if hooks.started != 1 || hooks.completed != 1 || hooks.lastErr == nil {
		t.Errorf("hooks = %+v", hooks)
	}
}

func TestCloseFlushes(t *testing.T) {
	s := New(dialogue.New())
	n := s.Add()
	_, _ = s.Select(n)
	s.Buffer().Text = "saved on close"

	if _, err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if n.Text != "saved on close" {
		t.Errorf("Text = %q", n.Text)
	}
}

func TestExportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialogue_export.json")
	s := New(dialogue.New())
	s.Add()

	if _, err := s.Export(context.Background(), dio.NewFileSink(path)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[\n  {\n    \"text\": \"\"\n  }\n]\n" {
		t.Errorf("file = %q", data)
	}
}
