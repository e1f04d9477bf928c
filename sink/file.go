package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Suffix is appended to the base name of a source to name its output file.
const Suffix = ".structured.json"

// File writes each batch to <dir>/<name>.structured.json, where name is the
// source's base name without its extension, or the run ID for sources
// without a name.
type File struct {
	dir string
}

// NewFile creates a file sink rooted at dir. The directory is created on
// first write.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Path returns the output path for a batch.
func (f *File) Path(b Batch) string {
	name := b.RunID
	if b.Source != "" {
		base := filepath.Base(b.Source)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(f.dir, name+Suffix)
}

// Write stores the batch output. The file is written to a temporary name
// and renamed so readers never observe a partial document.
func (f *File) Write(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, b.Output, true); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	path := f.Path(b)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Writer prints each batch output as indented JSON to w.
type Writer struct {
	w io.Writer
}

// NewWriter creates a sink printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes the batch output.
func (s *Writer) Write(_ context.Context, b Batch) error {
	return Encode(s.w, b.Output, true)
}
