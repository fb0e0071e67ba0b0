package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/storyline/pkg/dialogue"
	"github.com/matzehuels/storyline/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the speaker, a text excerpt, set_var and jump_if to
	// node labels. When false, only the title and id are shown.
	Detailed bool

	// Unresolved draws jump targets that match no line as red dashed nodes.
	Unresolved bool
}

const excerptLen = 40

// ToDOT converts a dialogue graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Lines without an id cannot be jumped to; they are drawn with dashed
// outlines and grey fill. Edges are labelled with their kind: "jump" for
// the default jump and the slot letter for options.
func ToDOT(g *dialogue.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=18, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=14];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeName(n), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", nodeName(e.From), nodeName(e.To), strings.Join(edgeAttrs(e.Kind), ", "))
	}

	if opts.Unresolved {
		writeUnresolved(&buf, g)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeName is the DOT identifier of a line. Handles are unique even when
// ids are shared or empty.
func nodeName(n *dialogue.Node) string {
	return n.Handle.String()
}

func fmtLabel(n *dialogue.Node, detailed bool) string {
	lines := []string{n.Title}
	if n.ID != "" {
		lines = append(lines, "#"+n.ID)
	}
	if !detailed {
		return strings.Join(lines, "\n")
	}

	if n.Speaker != "" {
		lines = append(lines, "speaker: "+n.Speaker)
	}
	if n.Text != "" {
		lines = append(lines, strconv.Quote(excerpt(n.Text)))
	}
	if len(n.SetVars) > 0 {
		lines = append(lines, "set_var: "+dialogue.FormatVars(n.SetVars))
	}
	for _, cond := range slices.Sorted(maps.Keys(n.JumpIf)) {
		lines = append(lines, fmt.Sprintf("if %s: %s", cond, n.JumpIf[cond]))
	}
	return strings.Join(lines, "\n")
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen-1]) + "…"
}

func fmtAttrs(n *dialogue.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.ID == "" {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

func edgeAttrs(k dialogue.EdgeKind) []string {
	attrs := []string{fmt.Sprintf("label=%q", k.String())}
	if k != dialogue.EdgeJump {
		attrs = append(attrs, "color=steelblue", "fontcolor=steelblue")
	}
	return attrs
}

func writeUnresolved(buf *bytes.Buffer, g *dialogue.Graph) {
	refs := g.Unresolved()
	if len(refs) == 0 {
		return
	}
	buf.WriteString("\n")
	seen := make(map[string]bool)
	for _, r := range refs {
		name := "missing:" + r.Target
		if !seen[name] {
			seen[name] = true
			fmt.Fprintf(buf, "  %q [label=%q, style=\"rounded,dashed\", color=firebrick, fontcolor=firebrick];\n", name, r.Target)
		}
		label := strings.TrimPrefix(r.Field, "option")
		fmt.Fprintf(buf, "  %q -> %q [label=%q, style=dashed, color=firebrick];\n", nodeName(r.From), name, label)
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPNG].
//
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
