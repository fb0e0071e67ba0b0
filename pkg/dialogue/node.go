package dialogue

import (
	"bytes"
	"encoding/json"
	"maps"
	"strings"

	"github.com/google/uuid"
)

// Slot addresses one of the three fixed choice options of a line.
type Slot int

const (
	SlotA Slot = iota
	SlotB
	SlotC
)

// SlotCount is the number of option slots on every line.
const SlotCount = 3

// Slots lists every slot in serialization order.
var Slots = [SlotCount]Slot{SlotA, SlotB, SlotC}

// String returns the slot letter ("A", "B" or "C").
func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	case SlotC:
		return "C"
	}
	return "?"
}

// Key returns the export key for the slot ("optionA", ...).
func (s Slot) Key() string { return "option" + s.String() }

// Valid reports whether s addresses an existing slot.
func (s Slot) Valid() bool { return s >= SlotA && s <= SlotC }

// ParseSlot converts a slot letter (case-insensitive) to a Slot.
func ParseSlot(s string) (Slot, bool) {
	switch strings.ToUpper(strings.TrimPrefix(s, "option")) {
	case "A":
		return SlotA, true
	case "B":
		return SlotB, true
	case "C":
		return SlotC, true
	}
	return 0, false
}

// Option is a player-facing choice. An empty Jump marks a terminal choice
// that advances without an explicit redirect.
type Option struct {
	Text string
	Jump string
}

// Node is one authorable dialogue line.
//
// Fields may be read freely. Writes should go through [Graph.UpdateNode] so
// the derived edge set stays current; callers that mutate fields directly
// must call [Graph.RecomputeEdges] afterwards.
type Node struct {
	ID      string // Author-assigned key; empty means unaddressable
	Speaker string // Opaque key into the speaker registry
	Text    string

	// Options holds the choices; a nil entry is an absent option.
	Options [SlotCount]*Option

	Jump    string            // Default jump target id
	SetVars map[string]any    // Variable assignments, JSON scalar values
	JumpIf  map[string]string // Condition key -> target id

	// Title is a display label assigned at creation. It is never exported.
	Title string
	// Handle identifies the node within one editing session so presentation
	// layers can key renderer state by it. It is never exported.
	Handle uuid.UUID
}

// NewNode creates a line with the given display title and blank fields.
func NewNode(title string) *Node {
	return &Node{
		Title:   title,
		Handle:  uuid.New(),
		SetVars: map[string]any{},
		JumpIf:  map[string]string{},
	}
}

// Option returns the option in slot s, or nil when the slot is empty.
func (n *Node) Option(s Slot) *Option {
	if !s.Valid() {
		return nil
	}
	return n.Options[s]
}

// SetOption fills slot s. Text and jump are trimmed; an empty text clears
// the slot, discarding any jump.
func (n *Node) SetOption(s Slot, text, jump string) {
	if !s.Valid() {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		n.Options[s] = nil
		return
	}
	n.Options[s] = &Option{Text: text, Jump: strings.TrimSpace(jump)}
}

// Label returns the id when set, otherwise the display title.
func (n *Node) Label() string {
	if n.ID != "" {
		return n.ID
	}
	return n.Title
}

// Target is one outgoing jump reference of a line.
type Target struct {
	Kind EdgeKind
	ID   string
}

// Targets returns the non-empty jump references that may become edges, in
// fixed order: default jump, then options A, B and C. Conditional jumps are
// not included.
func (n *Node) Targets() []Target {
	var out []Target
	if n.Jump != "" {
		out = append(out, Target{Kind: EdgeJump, ID: n.Jump})
	}
	for _, s := range Slots {
		if opt := n.Options[s]; opt != nil && opt.Jump != "" {
			out = append(out, Target{Kind: slotEdgeKind(s), ID: opt.Jump})
		}
	}
	return out
}

// =============================================================================
// Serialization
// =============================================================================

// Record is the sparse export form of a line. Field order is the key order
// of the emitted JSON object.
type Record struct {
	ID      string            `json:"id,omitempty" bson:"id,omitempty"`
	Speaker string            `json:"speaker,omitempty" bson:"speaker,omitempty"`
	Text    string            `json:"text" bson:"text"`
	OptionA *OptionRecord     `json:"optionA,omitempty" bson:"optionA,omitempty"`
	OptionB *OptionRecord     `json:"optionB,omitempty" bson:"optionB,omitempty"`
	OptionC *OptionRecord     `json:"optionC,omitempty" bson:"optionC,omitempty"`
	SetVars map[string]any    `json:"set_var,omitempty" bson:"set_var,omitempty"`
	Jump    string            `json:"jump,omitempty" bson:"jump,omitempty"`
	JumpIf  map[string]string `json:"jump_if,omitempty" bson:"jump_if,omitempty"`
}

// OptionRecord is the export form of an option. Jump is omitted for
// terminal choices.
type OptionRecord struct {
	Text string `json:"text" bson:"text"`
	Jump string `json:"jump,omitempty" bson:"jump,omitempty"`
}

// Serialize returns the export record for n. Empty fields are left zero so
// they are omitted on encoding. Maps are copied.
func (n *Node) Serialize() Record {
	r := Record{
		ID:      n.ID,
		Speaker: n.Speaker,
		Text:    n.Text,
		OptionA: optionRecord(n.Options[SlotA]),
		OptionB: optionRecord(n.Options[SlotB]),
		OptionC: optionRecord(n.Options[SlotC]),
		Jump:    n.Jump,
	}
	if len(n.SetVars) > 0 {
		r.SetVars = maps.Clone(n.SetVars)
	}
	if len(n.JumpIf) > 0 {
		r.JumpIf = maps.Clone(n.JumpIf)
	}
	return r
}

func optionRecord(o *Option) *OptionRecord {
	if o == nil {
		return nil
	}
	return &OptionRecord{Text: o.Text, Jump: o.Jump}
}

// MarshalJSON encodes the export record of n without HTML escaping.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n.Serialize()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
