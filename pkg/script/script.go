// Package script reads and writes dialogue scripts: TOML files that list
// lines in display order, as an author would type them into the editor.
//
//	name = "intro"
//
//	[[line]]
//	id = "intro"
//	speaker = "stan"
//	text = "Hey, over here!"
//	set_var = '{"met_stan": true}'
//
//	  [line.optionA]
//	  text = "Hi Stan"
//	  jump = "after_choice"
//
// Replaying a script adds one node per line and applies the line's fields
// with [dialogue.Graph.UpdateNode], so malformed set_var or jump_if text
// produces the same warnings as interactive editing.
package script

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
)

// Script is a named list of lines.
type Script struct {
	Name  string `toml:"name,omitempty"`
	Lines []Line `toml:"line"`
}

// Line is one dialogue line. SetVars and JumpIf hold raw JSON object text.
type Line struct {
	Title   string `toml:"title,omitempty"`
	ID      string `toml:"id,omitempty"`
	Speaker string `toml:"speaker,omitempty"`
	Text    string `toml:"text"`
	Jump    string `toml:"jump,omitempty"`
	SetVars string `toml:"set_var,omitempty"`
	JumpIf  string `toml:"jump_if,omitempty"`

	OptionA *Option `toml:"optionA,omitempty"`
	OptionB *Option `toml:"optionB,omitempty"`
	OptionC *Option `toml:"optionC,omitempty"`
}

// Option is one answer choice.
type Option struct {
	Text string `toml:"text"`
	Jump string `toml:"jump,omitempty"`
}

func (l *Line) options() [dialogue.SlotCount]*Option {
	return [dialogue.SlotCount]*Option{l.OptionA, l.OptionB, l.OptionC}
}

// Update returns the field update that applies l to a blank node.
func (l *Line) Update() dialogue.Update {
	u := dialogue.Update{
		ID:      dialogue.String(l.ID),
		Speaker: dialogue.String(l.Speaker),
		Text:    dialogue.String(l.Text),
		Jump:    dialogue.String(l.Jump),
	}
	for s, opt := range l.options() {
		if opt != nil {
			u.Options[s] = &dialogue.OptionEdit{Text: opt.Text, Jump: opt.Jump}
		}
	}
	if strings.TrimSpace(l.SetVars) != "" {
		u.SetVars = dialogue.String(l.SetVars)
	}
	if strings.TrimSpace(l.JumpIf) != "" {
		u.JumpIf = dialogue.String(l.JumpIf)
	}
	return u
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.New(errs.ErrCodeFileNotFound, "script not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = nameFromPath(path)
	}
	return s, nil
}

// Parse decodes a script. Unknown keys are rejected.
func Parse(data []byte) (*Script, error) {
	var s Script
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidScript, err, "parse script")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.ErrCodeInvalidScript, "unknown script keys: %s", strings.Join(keys, ", "))
	}
	return &s, nil
}

// Replay appends the script's lines to g in order and returns the warnings
// collected along the way. A hard update error stops the replay; lines
// added before it stay in g.
func (s *Script) Replay(g *dialogue.Graph) (dialogue.Warnings, error) {
	var warnings dialogue.Warnings
	for i := range s.Lines {
		l := &s.Lines[i]
		n := g.AddNode()
		if l.Title != "" {
			n.Title = l.Title
		}
		w, err := g.UpdateNode(n, l.Update())
		if err != nil {
			return warnings, errs.Wrap(errs.GetCode(err), err, "line %d", i+1)
		}
		warnings = append(warnings, w...)
	}
	return warnings, nil
}

// Build replays s into a new graph.
func (s *Script) Build(opts ...dialogue.GraphOption) (*dialogue.Graph, dialogue.Warnings, error) {
	g := dialogue.New(opts...)
	w, err := s.Replay(g)
	if err != nil {
		return nil, w, err
	}
	return g, w, nil
}

// FromGraph captures the current state of g as a script.
func FromGraph(name string, g *dialogue.Graph) *Script {
	s := &Script{Name: name}
	nodes := g.Nodes()
	s.Lines = make([]Line, 0, len(nodes))
	for i, n := range nodes {
		l := Line{
			ID:      n.ID,
			Speaker: n.Speaker,
			Text:    n.Text,
			Jump:    n.Jump,
		}
		if n.Title != fmt.Sprintf("Line %d", i+1) {
			l.Title = n.Title
		}
		if len(n.SetVars) > 0 {
			l.SetVars = dialogue.FormatVars(n.SetVars)
		}
		if len(n.JumpIf) > 0 {
			l.JumpIf = dialogue.FormatConditions(n.JumpIf)
		}
		opts := [dialogue.SlotCount]**Option{&l.OptionA, &l.OptionB, &l.OptionC}
		for _, slot := range dialogue.Slots {
			if o := n.Option(slot); o != nil {
				*opts[slot] = &Option{Text: o.Text, Jump: o.Jump}
			}
		}
		s.Lines = append(s.Lines, l)
	}
	return s
}

// Encode writes s as TOML.
func (s *Script) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = "  "
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	return nil
}

// Save writes s to path.
func (s *Script) Save(path string) error {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
