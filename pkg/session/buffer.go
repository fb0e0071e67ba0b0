package session

import (
	"github.com/matzehuels/storyline/pkg/dialogue"
)

// Buffer holds the editable text of the selected line, one field per
// inspector input. Nothing reaches the graph until the session flushes.
type Buffer struct {
	ID      string
	Speaker string
	Text    string
	Options [dialogue.SlotCount]OptionBuffer
	SetVars string
	Jump    string
	JumpIf  string
}

// OptionBuffer is the pair of inputs for one answer slot.
type OptionBuffer struct {
	Text string
	Jump string
}

// LoadBuffer fills a buffer from n. Mappings are rendered as compact JSON.
func LoadBuffer(n *dialogue.Node) *Buffer {
	b := &Buffer{
		ID:      n.ID,
		Speaker: n.Speaker,
		Text:    n.Text,
		SetVars: dialogue.FormatVars(n.SetVars),
		Jump:    n.Jump,
		JumpIf:  dialogue.FormatConditions(n.JumpIf),
	}
	for _, s := range dialogue.Slots {
		if o := n.Option(s); o != nil {
			b.Options[s] = OptionBuffer{Text: o.Text, Jump: o.Jump}
		}
	}
	return b
}

// Update converts the buffer into a full field update.
func (b *Buffer) Update() dialogue.Update {
	u := dialogue.Update{
		ID:      dialogue.String(b.ID),
		Speaker: dialogue.String(b.Speaker),
		Text:    dialogue.String(b.Text),
		Jump:    dialogue.String(b.Jump),
		SetVars: dialogue.String(b.SetVars),
		JumpIf:  dialogue.String(b.JumpIf),
	}
	for _, s := range dialogue.Slots {
		o := b.Options[s]
		u.Options[s] = &dialogue.OptionEdit{Text: o.Text, Jump: o.Jump}
	}
	return u
}

// Field names accepted by [Buffer.Set] and [Buffer.Get].
const (
	FieldID      = "id"
	FieldSpeaker = "speaker"
	FieldText    = "text"
	FieldSetVars = "set_var"
	FieldJump    = "jump"
	FieldJumpIf  = "jump_if"
)

// Fields lists every buffer field in inspector order. Option slots appear
// as "optionA.text" and "optionA.jump".
func Fields() []string {
	fields := []string{FieldSpeaker, FieldID, FieldText}
	for _, s := range dialogue.Slots {
		fields = append(fields, s.Key()+".text", s.Key()+".jump")
	}
	return append(fields, FieldSetVars, FieldJump, FieldJumpIf)
}

// Get returns the value of a named field.
func (b *Buffer) Get(field string) (string, bool) {
	p, ok := b.field(field)
	if !ok {
		return "", false
	}
	return *p, true
}

// Set assigns a named field and reports whether the name was known.
func (b *Buffer) Set(field, value string) bool {
	p, ok := b.field(field)
	if ok {
		*p = value
	}
	return ok
}

func (b *Buffer) field(name string) (*string, bool) {
	switch name {
	case FieldID:
		return &b.ID, true
	case FieldSpeaker:
		return &b.Speaker, true
	case FieldText:
		return &b.Text, true
	case FieldSetVars:
		return &b.SetVars, true
	case FieldJump:
		return &b.Jump, true
	case FieldJumpIf:
		return &b.JumpIf, true
	}
	for _, s := range dialogue.Slots {
		switch name {
		case s.Key() + ".text":
			return &b.Options[s].Text, true
		case s.Key() + ".jump":
			return &b.Options[s].Jump, true
		}
	}
	return nil, false
}
