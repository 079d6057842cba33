package core

import (
	"fmt"
	"time"
)

// Phase names one step of the archive lifecycle
type Phase string

const (
	PhaseArchive Phase = "archive"
	PhaseVerify  Phase = "verify"
	PhaseClean   Phase = "clean"
)

// Outcome is the per-file result of a phase
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// ArchivedFile is one file's archival state as recorded in its sidecar.
type ArchivedFile struct {
	LocalPath    string
	RemoteKey    string
	Bucket       string
	Digest       string
	Size         int64
	Owner        string
	Group        string
	LastModified string
}

// UploadReceipt describes what the remote store holds after an upload
type UploadReceipt struct {
	Bucket   string
	Key      string
	ETag     string
	Size     int64
	Metadata map[string]string
}

// VerificationResult is one row of the verification report
type VerificationResult struct {
	LocalPath string
	Verified  bool
}

// FileFailure records a per-file error that did not abort the run
type FileFailure struct {
	Path  string
	Error string
}

// RunSummary aggregates the per-file outcomes of one phase invocation.
type RunSummary struct {
	Phase     Phase
	RunID     string
	Started   time.Time
	Finished  time.Time
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
	Bytes     int64
	Failures  []FileFailure
}

// NewRunSummary starts a summary for the given phase
func NewRunSummary(phase Phase, runID string) *RunSummary {
	return &RunSummary{
		Phase:   phase,
		RunID:   runID,
		Started: time.Now(),
	}
}

// Succeed counts a file that completed the phase.
func (s *RunSummary) Succeed(bytes int64) {
	s.Processed++
	s.Succeeded++
	s.Bytes += bytes
}

// Skip counts a file that was deliberately left alone.
func (s *RunSummary) Skip() {
	s.Processed++
	s.Skipped++
}

// Fail counts a file whose processing failed and keeps the reason.
func (s *RunSummary) Fail(path string, err error) {
	s.Processed++
	s.Failed++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.Failures = append(s.Failures, FileFailure{Path: path, Error: msg})
}

// Finish stamps the end time
func (s *RunSummary) Finish() {
	s.Finished = time.Now()
}

// Duration returns the wall time of the run
func (s *RunSummary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}

// Err returns ErrPartialFailure when at least one file failed.
func (s *RunSummary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return WrapError(ErrPartialFailure, fmt.Errorf("%d of %d files failed", s.Failed, s.Processed))
}
