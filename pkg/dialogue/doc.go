// Package dialogue provides the node-graph data model behind storyline's
// branching dialogue editor.
//
// # Overview
//
// A dialogue is an ordered collection of lines ([Node]). Each line carries a
// speaker, body text, up to three player choices ([Option], addressed by
// [Slot]), a default jump, variable assignments (set_var) and conditional
// jump overrides (jump_if). Jumps reference other lines by their
// author-assigned id.
//
// A [Graph] owns the lines and derives the visual edge set from their jump
// references. Edges are never edited directly: every structural change
// ([Graph.AddNode], [Graph.RemoveNode], [Graph.UpdateNode]) rebuilds them
// from scratch through [Graph.RecomputeEdges].
//
// # Basic Usage
//
//	g := dialogue.New()
//	intro := g.AddNode()
//	_, err := g.UpdateNode(intro, dialogue.Update{
//	    ID:   dialogue.String("intro"),
//	    Text: dialogue.String("Hey, over here!"),
//	    Jump: dialogue.String("reply"),
//	})
//
// # Edge Derivation
//
// Recomputation builds an id map from every line with a non-empty id, in
// display order, so a later duplicate id wins. For each line the candidate
// targets are checked in fixed order: default jump, then options A, B and C.
// A candidate becomes an [Edge] only when it is non-empty and resolves
// through the id map. Unresolved references are dropped silently: authors
// may point at lines they have not written yet. Conditional jumps (jump_if)
// never contribute edges; [Graph.Unresolved] still reports them.
//
// # Malformed Input
//
// [Update] carries set_var and jump_if as raw JSON text, the way an inspector
// form holds them. Text that does not parse as the expected mapping produces
// a [Warnings] entry and resets the field to an empty mapping; the rest of the
// update is still applied.
//
// # Export
//
// [Graph.Export] serializes every line in display order into sparse
// [Record] values: keys for empty fields are omitted rather than written as
// empty strings. The pkg/io package writes records to files and other sinks.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. Every operation runs to
// completion synchronously, including listener notification, so a caller
// that serializes access observes a consistent edge set after each call.
package dialogue
