package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/newthinker/archivist/internal/core"
)

// Writer writes a report file. Rows go to a temporary file that replaces
// the destination on Close, so a reader never sees a half-written row.
type Writer struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
	rows int
}

// Create opens a report writer for path
func Create(path string) (*Writer, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}
	return &Writer{
		path: path,
		tmp:  tmp,
		buf:  bufio.NewWriter(tmp),
	}, nil
}

// Add appends one row. A path that cannot be written as a single row is
// rejected with core.ErrReportInvalid and nothing is written.
func (w *Writer) Add(result core.VerificationResult) error {
	if err := ValidatePath(result.LocalPath); err != nil {
		return err
	}
	if _, err := io.WriteString(w.buf, FormatRow(result)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes the rows and moves the report into place.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.Abort()
		return fmt.Errorf("flushing report: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("syncing report: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("closing report: %w", err)
	}
	if err := os.Chmod(w.tmp.Name(), 0644); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("closing report: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("installing report: %w", err)
	}
	return nil
}

// Abort drops the rows written so far and leaves any existing report at
// the destination untouched.
func (w *Writer) Abort() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}

// Printer writes results in a form meant for people at a terminal
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Add(result core.VerificationResult) error {
	status := "verified"
	if !result.Verified {
		status = "FAILED"
	}
	_, err := fmt.Fprintf(p.w, "%-8s  %s\n", status, result.LocalPath)
	return err
}
