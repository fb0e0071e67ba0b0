package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/storyline/pkg/dialogue"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/session"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m EditorModel, keys ...string) EditorModel {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(EditorModel)
	}
	return m
}

func newTestEditor(t *testing.T, lines int, sink dio.Sink) EditorModel {
	t.Helper()
	g := dialogue.New()
	for range lines {
		g.AddNode()
	}
	drafts, err := session.NewDraftStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if sink == nil {
		sink = dio.NewWriterSink(&bytes.Buffer{}, "memory")
	}
	return NewEditorModel(context.Background(), session.New(g), sink, drafts, "test")
}

// fieldIndex returns how many "down" presses reach field from the top.
func fieldIndex(t *testing.T, field string) int {
	t.Helper()
	for i, f := range session.Fields() {
		if f == field {
			return i
		}
	}
	t.Fatalf("unknown field %q", field)
	return 0
}

// editField moves to field in the inspector, types value and commits it.
func editField(t *testing.T, m EditorModel, field, value string) EditorModel {
	t.Helper()
	m = press(m, "enter")
	for m.fieldCursor > 0 {
		m = press(m, "up")
	}
	for range fieldIndex(t, field) {
		m = press(m, "down")
	}
	m = press(m, "enter", value, "enter", "esc")
	return m
}

func TestEditorSelectsFirstLine(t *testing.T) {
	m := newTestEditor(t, 2, nil)
	nodes := m.Session().Graph().Nodes()
	if m.Session().Selected() != nodes[0] {
		t.Error("first line should be selected")
	}
	m = press(m, "down")
	if m.Session().Selected() != nodes[1] || m.cursor != 1 {
		t.Errorf("cursor = %d, selected = %v", m.cursor, m.Session().Selected())
	}
	m = press(m, "down")
	if m.cursor != 1 {
		t.Errorf("cursor moved past the last line: %d", m.cursor)
	}
}

func TestEditorEditsFlushOnSelectionChange(t *testing.T) {
	m := newTestEditor(t, 2, nil)
	g := m.Session().Graph()
	nodes := g.Nodes()

	m = editField(t, m, session.FieldID, "intro")
	if nodes[0].ID != "" {
		t.Error("edit should stay in the buffer until flushed")
	}
	if !m.Session().Dirty() {
		t.Error("session should be dirty")
	}

	m = press(m, "down")
	if nodes[0].ID != "intro" {
		t.Errorf("ID = %q, want flushed on selection change", nodes[0].ID)
	}

	m = editField(t, m, session.FieldJump, "intro")
	m = press(m, "w")
	if edges := g.Edges(); len(edges) != 1 || edges[0].From != nodes[1] || edges[0].To != nodes[0] {
		t.Errorf("edges = %v, want Line 2 -> intro", edges)
	}
	if m.status != "Applied" {
		t.Errorf("status = %q", m.status)
	}
}

func TestEditorEscapeCancelsInput(t *testing.T) {
	m := newTestEditor(t, 1, nil)
	m = press(m, "enter", "enter", "stan", "esc")
	if m.editing {
		t.Error("esc should end editing")
	}
	if m.Session().Buffer().Speaker != "" {
		t.Errorf("Speaker = %q, want unchanged", m.Session().Buffer().Speaker)
	}
}

func TestEditorWarningsShowInStatus(t *testing.T) {
	m := newTestEditor(t, 1, nil)
	m = editField(t, m, session.FieldSetVars, "not valid json")
	m = press(m, "w")
	if !m.statusErr || !strings.Contains(m.status, "set_var") {
		t.Errorf("status = %q (err=%v)", m.status, m.statusErr)
	}
}

func TestEditorAddAndDelete(t *testing.T) {
	m := newTestEditor(t, 0, nil)
	g := m.Session().Graph()

	m = press(m, "a", "a")
	if g.Len() != 2 || m.cursor != 1 || m.Session().Selected() != g.Nodes()[1] {
		t.Fatalf("len = %d, cursor = %d", g.Len(), m.cursor)
	}

	m = press(m, "d")
	if g.Len() != 1 || m.cursor != 0 || m.Session().Selected() != g.Nodes()[0] {
		t.Errorf("after delete: len = %d, cursor = %d", g.Len(), m.cursor)
	}
	m = press(m, "d")
	if g.Len() != 0 || m.Session().Selected() != nil {
		t.Errorf("after deleting all: len = %d", g.Len())
	}
	if !strings.Contains(m.View(), "No lines yet") {
		t.Error("empty view should prompt to add a line")
	}
}

func TestEditorExport(t *testing.T) {
	var out bytes.Buffer
	m := newTestEditor(t, 1, dio.NewWriterSink(&out, "memory"))

	m = editField(t, m, session.FieldText, "Hello")
	m = press(m, "e")
	if out.String() != "[\n  {\n    \"text\": \"Hello\"\n  }\n]\n" {
		t.Errorf("export = %q", out.String())
	}
	if m.statusErr || !strings.Contains(m.status, "Exported 1 lines") {
		t.Errorf("status = %q", m.status)
	}
}

func TestEditorSaveDraft(t *testing.T) {
	m := newTestEditor(t, 1, nil)
	m = editField(t, m, session.FieldID, "intro")
	m = press(m, "s")
	if m.statusErr {
		t.Fatalf("save failed: %s", m.status)
	}

	s, err := m.drafts.Load(context.Background(), "test")
	if err != nil || s == nil {
		t.Fatalf("Load() = %v, %v", s, err)
	}
	if len(s.Lines) != 1 || s.Lines[0].ID != "intro" {
		t.Errorf("draft lines = %+v", s.Lines)
	}
}

func TestEditorQuit(t *testing.T) {
	m := newTestEditor(t, 1, nil)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestEditorView(t *testing.T) {
	m := newTestEditor(t, 1, nil)
	m = editField(t, m, session.FieldID, "intro")
	view := m.View()
	for _, want := range []string{"Dialogue Editor *", "Line 1", "intro", "1 lines"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
