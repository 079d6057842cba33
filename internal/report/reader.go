package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/newthinker/archivist/internal/core"
)

const maxLineSize = 1 << 20

// Reader yields report rows in file order
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader reads rows from r
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next row, or io.EOF at the end of the report. A
// malformed row is returned unverified with an error wrapping
// core.ErrReportInvalid; reading may continue after it.
func (r *Reader) Next() (core.VerificationResult, error) {
	for r.sc.Scan() {
		r.line++
		text := r.sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		result, err := ParseRow(text)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", r.line, err)
		}
		return result, nil
	}
	if err := r.sc.Err(); err != nil {
		return core.VerificationResult{}, fmt.Errorf("reading report: %w", err)
	}
	return core.VerificationResult{}, io.EOF
}
