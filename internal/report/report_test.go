package report

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newthinker/archivist/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "/data/a.bam\tTrue\n", FormatRow(core.VerificationResult{LocalPath: "/data/a.bam", Verified: true}))
	assert.Equal(t, "/data/b.bam\tFalse\n", FormatRow(core.VerificationResult{LocalPath: "/data/b.bam"}))
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		line     string
		path     string
		verified bool
		wantErr  bool
	}{
		{"/data/a.bam\tTrue", "/data/a.bam", true, false},
		{"/data/a.bam\tTrue\n", "/data/a.bam", true, false},
		{"/data/a.bam\tTrue\r\n", "/data/a.bam", true, false},
		{"/data/b.bam\tFalse", "/data/b.bam", false, false},
		{"/data/with\ttab.bam\tTrue", "/data/with\ttab.bam", true, false},
		{"/data/c.bam\ttrue", "/data/c.bam", false, true},
		{"/data/c.bam\tyes", "/data/c.bam", false, true},
		{"/data/c.bam\t", "/data/c.bam", false, true},
		{"/data/no-tab", "/data/no-tab", false, true},
		{"\tTrue", "\tTrue", false, true},
		{"victim.txt\tTrue", "victim.txt", false, true},
		{"../data/a.bam\tTrue", "../data/a.bam", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseRow(tt.line)
			if tt.wantErr {
				assert.True(t, errors.Is(err, core.ErrReportInvalid), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.path, got.LocalPath)
			assert.Equal(t, tt.verified, got.Verified)
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/data/a.bam", false},
		{"/data/with\ttab.bam", false},
		{"/data/evil\nvictim.txt", true},
		{"/data/evil\rvictim.txt", true},
		{"data/a.bam", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidatePath(tt.path)
		if tt.wantErr {
			assert.True(t, errors.Is(err, core.ErrReportInvalid), "path %q: got %v", tt.path, err)
		} else {
			assert.NoError(t, err, "path %q", tt.path)
		}
	}
}

func TestReader_SplitNameIsNeverVerified(t *testing.T) {
	// what a report would contain if a name with a newline slipped through
	input := "/data/evil\nvictim.txt\tTrue\n"
	r := NewReader(strings.NewReader(input))

	got, err := r.Next()
	assert.True(t, errors.Is(err, core.ErrReportInvalid))
	assert.False(t, got.Verified)

	got, err = r.Next()
	assert.True(t, errors.Is(err, core.ErrReportInvalid), "relative tail must be rejected, got %v", err)
	assert.Equal(t, "victim.txt", got.LocalPath)
	assert.False(t, got.Verified)
}

func TestReader_Next(t *testing.T) {
	input := "/data/a\tTrue\n\n/data/b\tFalse\n/data/c\tmaybe\n/data/d\tTrue"
	r := NewReader(strings.NewReader(input))

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.VerificationResult{LocalPath: "/data/a", Verified: true}, got)

	got, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.VerificationResult{LocalPath: "/data/b", Verified: false}, got)

	got, err = r.Next()
	assert.True(t, errors.Is(err, core.ErrReportInvalid))
	assert.Contains(t, err.Error(), "line 4")
	assert.False(t, got.Verified)

	got, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "/data/d", got.LocalPath)
	assert.True(t, got.Verified)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.tsv")
	w, err := Create(path)
	require.NoError(t, err)

	rows := []core.VerificationResult{
		{LocalPath: "/data/one", Verified: true},
		{LocalPath: "/data/two", Verified: false},
		{LocalPath: "/data/three", Verified: true},
	}
	for _, r := range rows {
		require.NoError(t, w.Add(r))
	}
	assert.Equal(t, 3, w.Rows())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "report must not appear before Close")

	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/one\tTrue\n/data/two\tFalse\n/data/three\tTrue\n", string(data))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var got []core.VerificationResult
	r := NewReader(f)
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, row)
	}
	assert.Equal(t, rows, got)
}

func TestWriter_RejectsLineBreaks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.tsv")
	w, err := Create(path)
	require.NoError(t, err)

	err = w.Add(core.VerificationResult{LocalPath: "/data/evil\nvictim.txt", Verified: true})
	assert.True(t, errors.Is(err, core.ErrReportInvalid))
	require.NoError(t, w.Add(core.VerificationResult{LocalPath: "/data/ok", Verified: true}))
	assert.Equal(t, 1, w.Rows())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/ok\tTrue\n", string(data))
}

func TestWriter_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.tsv")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriter_AbortKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.tsv")
	require.NoError(t, os.WriteFile(path, []byte("/data/old\tTrue\n"), 0644))

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Add(core.VerificationResult{LocalPath: "/data/new", Verified: true}))
	w.Abort()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/old\tTrue\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary report must be removed")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	require.NoError(t, p.Add(core.VerificationResult{LocalPath: "/data/ok", Verified: true}))
	require.NoError(t, p.Add(core.VerificationResult{LocalPath: "/data/bad"}))

	out := buf.String()
	assert.Contains(t, out, "verified  /data/ok")
	assert.Contains(t, out, "FAILED    /data/bad")
}

func TestSinkImplementations(t *testing.T) {
	var _ Sink = (*Writer)(nil)
	var _ Sink = (*Printer)(nil)
}
