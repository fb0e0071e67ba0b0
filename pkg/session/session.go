// Package session implements the editing contract between a presentation
// layer and a dialogue graph.
//
// A Session tracks one selected line and an edit [Buffer] for it. Edits
// live in the buffer until the session flushes, which happens when the
// selection changes, on [Session.Flush], before every export, and on
// [Session.Close]. An export therefore always reflects the text currently
// shown to the author.
//
//	s := session.New(dialogue.New())
//	n := s.Add()
//	s.Select(n)
//	s.Buffer().Text = "Hello"
//	res, err := s.Export(ctx, io.NewFileSink("dialogue_export.json"))
//
// A Session is not safe for concurrent use.
package session

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/observability"
)

// Session is an editing session over one graph.
type Session struct {
	graph     *dialogue.Graph
	selected  *dialogue.Node
	buf       *Buffer
	strictIDs bool
	logger    *log.Logger
}

// Option configures a [Session].
type Option func(*Session)

// WithStrictIDs makes exports fail with DUPLICATE_ID when ids are shared.
func WithStrictIDs() Option {
	return func(s *Session) { s.strictIDs = true }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New starts a session over g with nothing selected.
func New(g *dialogue.Graph, opts ...Option) *Session {
	s := &Session{graph: g, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Graph returns the underlying graph.
func (s *Session) Graph() *dialogue.Graph { return s.graph }

// Selected returns the selected line, or nil.
func (s *Session) Selected() *dialogue.Node { return s.selected }

// Buffer returns the edit buffer of the selected line, or nil when nothing
// is selected.
func (s *Session) Buffer() *Buffer { return s.buf }

// Dirty reports whether the buffer differs from the selected line.
func (s *Session) Dirty() bool {
	if s.selected == nil {
		return false
	}
	return *LoadBuffer(s.selected) != *s.buf
}

// Select flushes pending edits and loads n into a fresh buffer. If the
// flush fails with a hard error the selection does not change.
func (s *Session) Select(n *dialogue.Node) (dialogue.Warnings, error) {
	if !s.graph.Contains(n) {
		return nil, errs.New(errs.ErrCodeNodeNotFound, "cannot select a line outside the dialogue")
	}
	warnings, err := s.Flush()
	if err != nil {
		return warnings, err
	}
	s.selected = n
	s.buf = LoadBuffer(n)
	s.logger.Debug("Selected node", "node", n.Label())
	return warnings, nil
}

// Deselect flushes pending edits and clears the selection.
func (s *Session) Deselect() (dialogue.Warnings, error) {
	warnings, err := s.Flush()
	if err != nil {
		return warnings, err
	}
	s.selected, s.buf = nil, nil
	return warnings, nil
}

// Flush applies the buffer to the selected line. It is a no-op when nothing
// is selected. On success the buffer is reloaded so it shows the values the
// graph kept, such as a reset mapping after a parse warning.
func (s *Session) Flush() (dialogue.Warnings, error) {
	if s.selected == nil {
		return nil, nil
	}
	warnings, err := s.graph.UpdateNode(s.selected, s.buf.Update())
	if err != nil {
		return nil, err
	}
	s.buf = LoadBuffer(s.selected)
	return warnings, nil
}

// Add appends a blank line. The selection does not change.
func (s *Session) Add() *dialogue.Node {
	return s.graph.AddNode()
}

// Remove deletes the selected line and discards its buffer. It reports
// whether a line was removed.
func (s *Session) Remove() bool {
	if s.selected == nil {
		return false
	}
	removed := s.graph.RemoveNode(s.selected)
	s.selected, s.buf = nil, nil
	return removed
}

// ExportResult describes a completed export.
type ExportResult struct {
	Sink     string
	Lines    int
	Bytes    int
	Warnings dialogue.Warnings
	Duration time.Duration
}

// Export flushes pending edits, serializes every line, and writes the
// result through sink in one call. A failed write is returned as
// EXPORT_FAILED; the graph is unaffected and stays editable. Export does
// not retry.
func (s *Session) Export(ctx context.Context, sink dio.Sink) (*ExportResult, error) {
	warnings, err := s.Flush()
	if err != nil {
		return nil, err
	}
	if s.strictIDs {
		if err := s.graph.CheckDuplicates(); err != nil {
			return nil, err
		}
	} else {
		for id, nodes := range s.graph.Duplicates() {
			s.logger.Warn("Duplicate id; jumps resolve to the last line", "id", id, "lines", len(nodes))
		}
	}

	records := s.graph.Export()
	start := time.Now()
	observability.Export().OnExportStart(ctx, sink.Name(), len(records))

	data, err := dio.MarshalJSON(records)
	if err == nil {
		err = sink.Write(ctx, data)
	}
	observability.Export().OnExportComplete(ctx, sink.Name(), len(records), len(data), time.Since(start), err)
	if err != nil {
		if errs.GetCode(err) != errs.ErrCodeExportFailed {
			err = errs.Wrap(errs.ErrCodeExportFailed, err, "export to %s", sink.Name())
		}
		return nil, err
	}

	s.logger.Info("Exported dialogue", "sink", sink.Name(), "lines", len(records))
	return &ExportResult{
		Sink:     sink.Name(),
		Lines:    len(records),
		Bytes:    len(data),
		Warnings: warnings,
		Duration: time.Since(start),
	}, nil
}

// Close flushes pending edits and ends the session.
func (s *Session) Close() (dialogue.Warnings, error) {
	return s.Deselect()
}
