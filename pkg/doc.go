// Package pkg provides the core libraries for storyline dialogue authoring.
//
// # Overview
//
// Storyline models branching game dialogue as an ordered list of lines.
// Each line may name a speaker, offer up to three choices, assign
// variables, and jump to other lines by id. The jumps form a directed
// graph that is recomputed after every edit. The pkg directory is
// organized into these areas:
//
//  1. [dialogue] - Lines, the graph of jumps, and the sparse export form
//  2. [session] - The editing session: selection, buffered edits, drafts
//  3. [script] - TOML dialogue scripts replayed through the graph
//  4. [io] - JSON export to files, streams and MongoDB
//  5. [pipeline] - Node-link rendering with an artifact [cache]
//  6. [config] - TOML configuration and XDG paths
//
// # Architecture
//
// The typical data flow through storyline:
//
//	TOML script or editor input
//	         ↓
//	    [session] package (select, buffer, flush)
//	         ↓
//	    [dialogue] package (update lines, recompute edges)
//	         ↓
//	    [io] package (sparse JSON export)
//
// # Quick Start
//
// Build a dialogue and export it:
//
//	import (
//	    "github.com/matzehuels/storyline/pkg/dialogue"
//	    "github.com/matzehuels/storyline/pkg/io"
//	)
//
//	g := dialogue.New()
//	intro := g.AddNode()
//	g.UpdateNode(intro, dialogue.Update{
//	    ID:   dialogue.String("intro"),
//	    Text: dialogue.String("Hey, over here!"),
//	})
//	data, err := io.MarshalJSON(g.Export())
//	if err != nil {
//	    return err
//	}
//	err = io.NewFileSink("dialogue_export.json").Write(ctx, data)
//
// [dialogue]: github.com/matzehuels/storyline/pkg/dialogue
// [session]: github.com/matzehuels/storyline/pkg/session
// [script]: github.com/matzehuels/storyline/pkg/script
// [io]: github.com/matzehuels/storyline/pkg/io
// [pipeline]: github.com/matzehuels/storyline/pkg/pipeline
// [cache]: github.com/matzehuels/storyline/pkg/cache
// [config]: github.com/matzehuels/storyline/pkg/config
package pkg
