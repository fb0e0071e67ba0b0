package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
)

// WriteJSON encodes records as an indented JSON array and writes it to w.
// HTML characters are written verbatim.
func WriteJSON(records []dialogue.Record, w io.Writer) error {
	if records == nil {
		records = []dialogue.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalJSON returns the bytes [WriteJSON] would write.
func MarshalJSON(records []dialogue.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(records, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFile writes data to a temporary file in the same directory as path
// and renames it over path, so path is either fully replaced or left
// untouched.
func writeFile(path string, data []byte) error {
	if err := errs.ValidateExportPath(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
