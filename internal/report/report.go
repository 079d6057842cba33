// Package report reads and writes the verification report handed from the
// verify phase to the clean phase. Each row is "<localPath>\t<True|False>".
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/newthinker/archivist/internal/core"
)

// Canonical boolean literals
const (
	True  = "True"
	False = "False"
)

// Sink receives verification results as they are produced
type Sink interface {
	Add(result core.VerificationResult) error
}

// FormatBool renders verified as a canonical literal
func FormatBool(verified bool) string {
	if verified {
		return True
	}
	return False
}

// ValidatePath reports whether path can be written as a single row. Only
// absolute paths without line breaks qualify; a line break would split
// the row and let the tail of the name be read back as another path.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, "\n\r") {
		return core.WrapError(core.ErrReportInvalid, fmt.Errorf("path %q contains a line break", path))
	}
	if !filepath.IsAbs(path) {
		return core.WrapError(core.ErrReportInvalid, fmt.Errorf("path %q is not absolute", path))
	}
	return nil
}

// FormatRow renders one report row including the trailing newline. Callers
// check the path with ValidatePath first.
func FormatRow(result core.VerificationResult) string {
	return result.LocalPath + "\t" + FormatBool(result.Verified) + "\n"
}

// ParseRow parses one report row. Only the literal "True" counts as
// verified; a row with any other value is returned unverified together
// with core.ErrReportInvalid.
func ParseRow(line string) (core.VerificationResult, error) {
	line = strings.TrimRight(line, "\r\n")

	idx := strings.LastIndexByte(line, '\t')
	if idx <= 0 {
		return core.VerificationResult{LocalPath: line},
			core.WrapError(core.ErrReportInvalid, fmt.Errorf("expected <path>\\t<True|False>, got %q", line))
	}

	result := core.VerificationResult{LocalPath: line[:idx]}
	if !filepath.IsAbs(result.LocalPath) {
		return result, core.WrapError(core.ErrReportInvalid, fmt.Errorf("path %q is not absolute", result.LocalPath))
	}
	switch value := line[idx+1:]; value {
	case True:
		result.Verified = true
	case False:
	default:
		return result, core.WrapError(core.ErrReportInvalid, fmt.Errorf("unknown verification value %q", value))
	}
	return result, nil
}
