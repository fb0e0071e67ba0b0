package io

import (
	"context"
	"io"

	errs "github.com/matzehuels/storyline/pkg/errors"
)

// Sink is an export destination. Write receives the complete encoded
// export and performs a single write.
type Sink interface {
	// Name describes the destination for logs and messages.
	Name() string
	// Write stores data. Implementations do not retry.
	Write(ctx context.Context, data []byte) error
}

// FileSink writes exports to a local file.
type FileSink struct {
	Path string
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink { return &FileSink{Path: path} }

// Name returns the file path.
func (s *FileSink) Name() string { return s.Path }

// Write replaces the file atomically.
func (s *FileSink) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFile(s.Path, data); err != nil {
		if errs.GetCode(err) != "" {
			return err
		}
		return errs.Wrap(errs.ErrCodeExportFailed, err, "export to %s", s.Path)
	}
	return nil
}

// WriterSink writes exports to a stream such as stdout.
type WriterSink struct {
	W     io.Writer
	Label string
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer, label string) *WriterSink {
	return &WriterSink{W: w, Label: label}
}

// Name returns the sink label.
func (s *WriterSink) Name() string {
	if s.Label == "" {
		return "stream"
	}
	return s.Label
}

// Write copies data to the underlying writer.
func (s *WriterSink) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.W.Write(data); err != nil {
		return errs.Wrap(errs.ErrCodeExportFailed, err, "export to %s", s.Name())
	}
	return nil
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*WriterSink)(nil)
	_ Sink = (*MongoSink)(nil)
)
