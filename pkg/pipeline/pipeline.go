// Package pipeline provides the rendering pipeline for storyline.
//
// The pipeline turns a dialogue graph into diagram artifacts: the graph is
// converted to DOT, and each requested format is rendered from the DOT
// source. Rendered artifacts are cached by the hash of the DOT source plus
// the format, so re-rendering an unchanged dialogue skips Graphviz. The CLI
// and the HTTP API share the same [Runner].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	res, err := runner.Render(ctx, g, pipeline.Options{
//	    Formats:  []string{pipeline.FormatSVG, pipeline.FormatPNG},
//	    Detailed: true,
//	})
//	if err != nil {
//	    return err
//	}
//	svg := res.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
	"github.com/matzehuels/storyline/pkg/render/nodelink"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0

	// DefaultTTL bounds how long artifacts stay cached.
	DefaultTTL = 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
	FormatDOT = "dot"
)

// ValidFormats is the set of supported output formats, in display order.
var ValidFormats = []string{FormatSVG, FormatPNG, FormatPDF, FormatDOT}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a render. It supports JSON for API requests.
type Options struct {
	Formats    []string `json:"formats,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
	Unresolved bool     `json:"unresolved,omitempty"`
	Scale      float64  `json:"scale,omitempty"`

	// Refresh ignores cached artifacts and overwrites them.
	Refresh bool `json:"refresh,omitempty"`
}

// Result contains the outputs of a render.
type Result struct {
	// DOT is the Graphviz source the artifacts were rendered from.
	DOT string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which formats came from the cache.
	CacheInfo CacheInfo
}

// Stats contains render statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	RenderTime time.Duration
}

// CacheInfo tracks cache hits per format.
type CacheInfo struct {
	Hits []string // formats served from cache
}

// AllCached reports whether every rendered format came from the cache.
func (c CacheInfo) AllCached(formats []string) bool {
	for _, f := range formats {
		if f != FormatDOT && !slices.Contains(c.Hits, f) {
			return false
		}
	}
	return true
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
			format, strings.Join(ValidFormats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats parses a comma-separated format list. Blank input means SVG.
func ParseFormats(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{FormatSVG}, nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || slices.Contains(formats, f) {
			continue
		}
		formats = append(formats, f)
	}
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	return formats, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks formats and applies defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	return ValidateFormats(o.Formats)
}

// DOTOptions returns the diagram options for [nodelink.ToDOT].
func (o *Options) DOTOptions() nodelink.Options {
	return nodelink.Options{Detailed: o.Detailed, Unresolved: o.Unresolved}
}

// ToDOT converts g using the options.
func (o *Options) ToDOT(g *dialogue.Graph) string {
	return nodelink.ToDOT(g, o.DOTOptions())
}
