// Package nodelink renders dialogue graphs as node-link diagrams.
//
// # Overview
//
// Each dialogue line becomes a rounded box and each resolved jump becomes
// an arrow labelled with the field that produced it: "jump" for the default
// jump, "A", "B" or "C" for answer options. Conditional jumps (jump_if) are
// not edges; detailed labels list them instead.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: node labels include speaker, a text excerpt, set_var and jump_if
//   - Unresolved: jump targets that match no line are drawn as red dashed nodes
//
// # DOT Format
//
// The generated DOT uses top-to-bottom layout (rankdir=TB). Node
// identifiers are session handles, so lines sharing an id, or having none,
// still get distinct boxes. Lines without an id are drawn dashed.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
