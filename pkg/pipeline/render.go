package pipeline

import (
	"context"
	"fmt"

	errs "github.com/matzehuels/storyline/pkg/errors"
	"github.com/matzehuels/storyline/pkg/render/nodelink"
)

// RenderDOT renders DOT source into one output format.
func RenderDOT(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatSVG:
		data, err = nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		data, err = nodelink.RenderPNG(ctx, dot, scale)
	case FormatPDF:
		data, err = nodelink.RenderPDF(ctx, dot)
	case FormatDOT:
		data = []byte(dot)
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}
