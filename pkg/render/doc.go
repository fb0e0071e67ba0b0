// Package render provides visualization rendering for dialogue graphs.
//
// # Overview
//
// This package contains the rendering helpers shared by the renderers:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - Node-link diagrams (in [nodelink] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// When rsvg-convert is missing both return an UNSUPPORTED error.
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage draws one box per dialogue line and one arrow
// per resolved jump using Graphviz.
//
// [nodelink]: github.com/matzehuels/storyline/pkg/render/nodelink
package render
