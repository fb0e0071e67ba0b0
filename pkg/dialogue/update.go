package dialogue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	errs "github.com/matzehuels/storyline/pkg/errors"
)

// Update is a partial field update for [Graph.UpdateNode]. Nil fields are
// left unchanged.
//
// SetVars and JumpIf hold raw JSON object text as typed by an author. Blank
// text means an empty mapping.
type Update struct {
	ID      *string
	Speaker *string
	Text    *string
	Jump    *string

	Options [SlotCount]*OptionEdit

	SetVars *string
	JumpIf  *string
}

// OptionEdit replaces one option slot. An empty Text clears the slot.
type OptionEdit struct {
	Text string
	Jump string
}

// String returns a pointer to s, for filling [Update] fields.
func String(s string) *string { return &s }

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	if u.ID != nil || u.Speaker != nil || u.Text != nil || u.Jump != nil || u.SetVars != nil || u.JumpIf != nil {
		return false
	}
	for _, o := range u.Options {
		if o != nil {
			return false
		}
	}
	return true
}

// Warnings collects recoverable problems found while applying an update.
// Each entry is an *errors.Error with code INVALID_VARS or
// INVALID_CONDITIONS.
type Warnings []*errs.Error

// Err joins the warnings into a single error, or returns nil when empty.
func (w Warnings) Err() error {
	if len(w) == 0 {
		return nil
	}
	list := make([]error, len(w))
	for i, e := range w {
		list[i] = e
	}
	return errors.Join(list...)
}

// ParseVars parses set_var text into a mapping of JSON scalars.
// Blank text yields an empty mapping. Integral numbers decode as int64,
// or as json.Number beyond the int64 range; others decode as float64.
func ParseVars(text string) (map[string]any, error) {
	raw, err := decodeObject(text)
	if err != nil {
		return map[string]any{}, err
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil, bool, string:
			out[k] = val
		case json.Number:
			n, err := scalarNumber(val)
			if err != nil {
				return map[string]any{}, fmt.Errorf("value of %q is not a number: %s", k, val)
			}
			out[k] = n
		default:
			return map[string]any{}, fmt.Errorf("value of %q must be a string, number, boolean or null", k)
		}
	}
	return out, nil
}

// scalarNumber converts a decoded number to int64 or float64. Integers
// outside the int64 range stay json.Number so they export unchanged.
func scalarNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		return n, nil
	}
	return n.Float64()
}

// ParseConditions parses jump_if text into a condition-to-target mapping.
// Blank text yields an empty mapping. Target ids are trimmed.
func ParseConditions(text string) (map[string]string, error) {
	raw, err := decodeObject(text)
	if err != nil {
		return map[string]string{}, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return map[string]string{}, fmt.Errorf("target of %q must be a node id string", k)
		}
		out[k] = strings.TrimSpace(s)
	}
	return out, nil
}

// FormatVars renders a set_var mapping back into editable text.
func FormatVars(vars map[string]any) string {
	if len(vars) == 0 {
		return "{}"
	}
	return encodeCompact(vars)
}

// FormatConditions renders a jump_if mapping back into editable text.
func FormatConditions(conds map[string]string) string {
	if len(conds) == 0 {
		return "{}"
	}
	return encodeCompact(conds)
}

func encodeCompact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// decodeObject decodes a single JSON object, rejecting trailing data.
func decodeObject(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("expected a JSON object")
	}
	return obj, nil
}
