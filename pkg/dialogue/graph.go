package dialogue

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/matzehuels/storyline/pkg/errors"
)

// EdgeKind records which jump field produced an edge.
type EdgeKind int

const (
	EdgeJump EdgeKind = iota
	EdgeOptionA
	EdgeOptionB
	EdgeOptionC
)

// String returns "jump" for default jumps and the slot letter for options.
func (k EdgeKind) String() string {
	switch k {
	case EdgeJump:
		return "jump"
	case EdgeOptionA:
		return "A"
	case EdgeOptionB:
		return "B"
	case EdgeOptionC:
		return "C"
	}
	return "?"
}

func slotEdgeKind(s Slot) EdgeKind { return EdgeOptionA + EdgeKind(s) }

// Edge is a derived connector from one line to the line its jump resolves to.
type Edge struct {
	From *Node
	To   *Node
	Kind EdgeKind
}

// SourceID returns the id of the source line, which may be empty.
func (e Edge) SourceID() string { return e.From.ID }

// TargetID returns the id of the target line. It is never empty.
func (e Edge) TargetID() string { return e.To.ID }

// Listener is notified of graph changes. Calls happen synchronously before
// the triggering operation returns.
type Listener interface {
	// EdgesChanged receives the new edge list after a recomputation that
	// changed it.
	EdgesChanged(edges []Edge)
	// NodeChanged is called after a successful update of n.
	NodeChanged(n *Node)
}

// ListenerFuncs adapts plain functions to [Listener]. Nil fields are skipped.
type ListenerFuncs struct {
	Edges func([]Edge)
	Node  func(*Node)
}

func (f ListenerFuncs) EdgesChanged(edges []Edge) {
	if f.Edges != nil {
		f.Edges(edges)
	}
}

func (f ListenerFuncs) NodeChanged(n *Node) {
	if f.Node != nil {
		f.Node(n)
	}
}

// GraphOption configures a [Graph].
type GraphOption func(*Graph)

// WithSpeakers sets the speaker registry.
func WithSpeakers(r Registry) GraphOption {
	return func(g *Graph) { g.speakers = r }
}

// WithStrictSpeakers rejects updates naming a speaker outside the registry.
func WithStrictSpeakers() GraphOption {
	return func(g *Graph) { g.strictSpeakers = true }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) GraphOption {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// Graph is an ordered collection of lines plus the edge set derived from
// their jump references.
//
// The zero value is not usable - use [New]. A Graph is not safe for
// concurrent use.
type Graph struct {
	nodes []*Node
	edges []Edge

	speakers       Registry
	strictSpeakers bool
	logger         *log.Logger

	listeners    []subscription
	nextListener int
}

// subscription is a registered listener. Listeners are notified in
// subscription order.
type subscription struct {
	id int
	l  Listener
}

// New creates an empty graph.
func New(opts ...GraphOption) *Graph {
	g := &Graph{
		speakers: DefaultRegistry(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Speakers returns the speaker registry.
func (g *Graph) Speakers() Registry { return g.speakers }

// Subscribe registers l and returns a function that unregisters it.
func (g *Graph) Subscribe(l Listener) (cancel func()) {
	id := g.nextListener
	g.nextListener++
	g.listeners = append(g.listeners, subscription{id: id, l: l})
	return func() {
		g.listeners = slices.DeleteFunc(g.listeners, func(s subscription) bool { return s.id == id })
	}
}

// =============================================================================
// Read access
// =============================================================================

// Len returns the number of lines.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the lines in display order. The slice is a copy; the nodes
// are shared.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Edges returns the current derived edges. The slice is a copy.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Contains reports whether n belongs to the graph.
func (g *Graph) Contains(n *Node) bool {
	return n != nil && slices.Contains(g.nodes, n)
}

// Node returns the line with the given session handle.
func (g *Graph) Node(h uuid.UUID) (*Node, bool) {
	for _, n := range g.nodes {
		if n.Handle == h {
			return n, true
		}
	}
	return nil, false
}

// Lookup resolves id the way edge derivation does: when several lines share
// the id, the last one in display order wins.
func (g *Graph) Lookup(id string) (*Node, bool) {
	if id == "" {
		return nil, false
	}
	n, ok := g.idMap()[id]
	return n, ok
}

// Index returns the display position of n, or -1.
func (g *Graph) Index(n *Node) int {
	return slices.Index(g.nodes, n)
}

// =============================================================================
// Mutations
// =============================================================================

// AddNode appends a blank line titled "Line N", where N is the new line
// count, and returns it.
func (g *Graph) AddNode() *Node {
	n := NewNode(fmt.Sprintf("Line %d", len(g.nodes)+1))
	g.nodes = append(g.nodes, n)
	g.logger.Debug("Added node", "title", n.Title, "handle", n.Handle)
	g.RecomputeEdges()
	return n
}

// RemoveNode removes n and reports whether it was present. Jump fields of
// other lines that referenced n's id are left as they are.
func (g *Graph) RemoveNode(n *Node) bool {
	i := g.Index(n)
	if i < 0 {
		return false
	}
	g.nodes = slices.Delete(g.nodes, i, i+1)
	g.logger.Debug("Removed node", "title", n.Title, "id", n.ID)
	g.RecomputeEdges()
	return true
}

// UpdateNode applies u to n and recomputes edges.
//
// Ids are opaque and always stored. An id with whitespace or control
// characters only produces a warning. Malformed set_var or jump_if text does
// not fail the update either: the field is reset to an empty mapping and a
// warning is returned. The returned error is reserved for updates that
// cannot be applied at all (n is not in the graph, or the speaker is unknown
// in strict mode); in that case n is left untouched.
func (g *Graph) UpdateNode(n *Node, u Update) (Warnings, error) {
	if !g.Contains(n) {
		return nil, errs.New(errs.ErrCodeNodeNotFound, "node is not part of this dialogue")
	}

	if u.Speaker != nil && g.strictSpeakers && *u.Speaker != "" && !g.speakers.Has(*u.Speaker) {
		return nil, errs.New(errs.ErrCodeUnknownSpeaker, "unknown speaker %q (registered: %s)",
			*u.Speaker, strings.Join(g.speakers.Names(), ", "))
	}

	var warnings Warnings
	if u.ID != nil {
		n.ID = strings.TrimSpace(*u.ID)
		if err := errs.ValidateNodeID(n.ID); err != nil {
			warnings = append(warnings, errs.New(errs.ErrCodeInvalidNodeID, "%s: %s", n.Title, errs.UserMessage(err)))
		}
	}
	if u.Speaker != nil {
		n.Speaker = *u.Speaker
	}
	if u.Text != nil {
		n.Text = *u.Text
	}
	for _, s := range Slots {
		if edit := u.Options[s]; edit != nil {
			n.SetOption(s, edit.Text, edit.Jump)
		}
	}
	if u.SetVars != nil {
		vars, err := ParseVars(*u.SetVars)
		if err != nil {
			warnings = append(warnings, errs.Wrap(errs.ErrCodeInvalidVars, err, "invalid JSON in set_var of %s", n.Label()))
		}
		n.SetVars = vars
	}
	if u.Jump != nil {
		n.Jump = strings.TrimSpace(*u.Jump)
	}
	if u.JumpIf != nil {
		conds, err := ParseConditions(*u.JumpIf)
		if err != nil {
			warnings = append(warnings, errs.Wrap(errs.ErrCodeInvalidConditions, err, "invalid JSON in jump_if of %s", n.Label()))
		}
		n.JumpIf = conds
	}

	for _, w := range warnings {
		g.logger.Warn(w.Message, "cause", w.Cause)
	}
	for _, sub := range slices.Clone(g.listeners) {
		sub.l.NodeChanged(n)
	}
	g.RecomputeEdges()
	return warnings, nil
}

// RecomputeEdges rebuilds the edge set from the current jump references and
// notifies listeners when it changed.
func (g *Graph) RecomputeEdges() {
	ids := g.idMap()

	var edges []Edge
	for _, n := range g.nodes {
		for _, t := range n.Targets() {
			if to, ok := ids[t.ID]; ok {
				edges = append(edges, Edge{From: n, To: to, Kind: t.Kind})
			}
		}
	}

	changed := !slices.Equal(edges, g.edges)
	g.edges = edges
	g.logger.Debug("Recomputed edges", "nodes", len(g.nodes), "edges", len(edges), "changed", changed)
	if !changed {
		return
	}
	for _, sub := range slices.Clone(g.listeners) {
		sub.l.EdgesChanged(slices.Clone(edges))
	}
}

func (g *Graph) idMap() map[string]*Node {
	ids := make(map[string]*Node, len(g.nodes))
	for _, n := range g.nodes {
		if n.ID != "" {
			ids[n.ID] = n
		}
	}
	return ids
}

// =============================================================================
// Export and diagnostics
// =============================================================================

// Export serializes every line in display order.
func (g *Graph) Export() []Record {
	out := make([]Record, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Serialize()
	}
	return out
}

// Duplicates returns the ids shared by more than one line, each with the
// lines using it in display order.
func (g *Graph) Duplicates() map[string][]*Node {
	byID := make(map[string][]*Node)
	for _, n := range g.nodes {
		if n.ID != "" {
			byID[n.ID] = append(byID[n.ID], n)
		}
	}
	maps.DeleteFunc(byID, func(_ string, nodes []*Node) bool { return len(nodes) < 2 })
	return byID
}

// CheckDuplicates returns a DUPLICATE_ID error naming every shared id, or
// nil when all ids are unique.
func (g *Graph) CheckDuplicates() error {
	dups := g.Duplicates()
	if len(dups) == 0 {
		return nil
	}
	return errs.New(errs.ErrCodeDuplicateID, "ids used by more than one line: %s",
		strings.Join(slices.Sorted(maps.Keys(dups)), ", "))
}

// Reference is a jump reference that does not resolve to any line.
type Reference struct {
	From   *Node
	Field  string // "jump", "optionA".."optionC", or "jump_if.<condition>"
	Target string
}

// Unresolved lists jump references, conditional ones included, whose
// target id is not used by any line. The result is informational.
func (g *Graph) Unresolved() []Reference {
	ids := g.idMap()

	var out []Reference
	for _, n := range g.nodes {
		if n.Jump != "" && ids[n.Jump] == nil {
			out = append(out, Reference{From: n, Field: "jump", Target: n.Jump})
		}
		for _, s := range Slots {
			if opt := n.Options[s]; opt != nil && opt.Jump != "" && ids[opt.Jump] == nil {
				out = append(out, Reference{From: n, Field: s.Key(), Target: opt.Jump})
			}
		}
		for _, cond := range slices.Sorted(maps.Keys(n.JumpIf)) {
			if target := n.JumpIf[cond]; target != "" && ids[target] == nil {
				out = append(out, Reference{From: n, Field: "jump_if." + cond, Target: target})
			}
		}
	}
	return out
}
