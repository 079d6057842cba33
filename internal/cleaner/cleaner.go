// Package cleaner deletes local files whose archived copy was verified.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/report"
	"github.com/newthinker/archivist/internal/sidecar"
	"go.uber.org/zap"
)

// Config holds clean run options
type Config struct {
	RunID         string
	Interactive   bool
	RemoveSidecar bool
	DryRun        bool
}

// Manager runs the clean phase
type Manager struct {
	cfg      Config
	prompter Prompter
	out      io.Writer
	logger   *zap.Logger
}

// New creates a clean Manager. prompter is only consulted in interactive
// mode; out receives the per-file messages shown to the operator.
func New(cfg Config, prompter Prompter, out io.Writer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Manager{
		cfg:      cfg,
		prompter: prompter,
		out:      out,
		logger:   logger,
	}
}

// Run deletes every local file the report at reportPath marks as verified
// and that still exists. Rows that are not verified are never deleted.
// Only an unreadable report ends the run early; per-file errors are
// recorded and the run continues.
func (m *Manager) Run(ctx context.Context, reportPath string) (*core.RunSummary, error) {
	summary := core.NewRunSummary(core.PhaseClean, m.cfg.RunID)
	defer summary.Finish()

	if m.cfg.Interactive && m.prompter == nil {
		return summary, core.WrapError(core.ErrConfigMissing, fmt.Errorf("interactive mode needs a prompter"))
	}

	f, err := os.Open(reportPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return summary, core.WrapError(core.ErrPathNotFound, fmt.Errorf("report %s", reportPath))
		}
		return summary, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	r := report.NewReader(f)
	prompting := true
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			if !errors.Is(err, core.ErrReportInvalid) {
				return summary, err
			}
			m.logger.Error("malformed report row, skipping", zap.Error(err))
			fmt.Fprintf(m.out, "Verification of file %s failed, skipping.\n", row.LocalPath)
			summary.Fail(row.LocalPath, err)
			continue
		}

		if !row.Verified {
			m.logger.Info("verification failed, skipping", zap.String("path", row.LocalPath))
			fmt.Fprintf(m.out, "Verification of file %s failed, skipping.\n", row.LocalPath)
			summary.Skip()
			continue
		}

		info, err := os.Lstat(row.LocalPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.logger.Debug("already removed", zap.String("path", row.LocalPath))
				summary.Skip()
				continue
			}
			m.logger.Error("cannot stat file", zap.String("path", row.LocalPath), zap.Error(err))
			summary.Fail(row.LocalPath, err)
			continue
		}
		if !info.Mode().IsRegular() {
			err := fmt.Errorf("%s is not a regular file", row.LocalPath)
			m.logger.Warn("refusing to remove", zap.Error(err))
			summary.Fail(row.LocalPath, err)
			continue
		}

		if m.cfg.Interactive {
			if !prompting {
				summary.Skip()
				continue
			}
			yes, err := m.prompter.Confirm(ctx, fmt.Sprintf("Delete local file %s?", row.LocalPath))
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			if err != nil {
				// No more answers; keep everything that is left.
				m.logger.Warn("no answer from operator, keeping remaining files", zap.Error(err))
				prompting = false
				summary.Skip()
				continue
			}
			if !yes {
				m.logger.Info("kept by operator", zap.String("path", row.LocalPath))
				summary.Skip()
				continue
			}
		}

		if m.cfg.DryRun {
			fmt.Fprintf(m.out, "Would remove local file %s.\n", row.LocalPath)
			summary.Skip()
			continue
		}

		if err := ctx.Err(); err != nil {
			return summary, err
		}
		m.remove(row.LocalPath, info.Size(), summary)
	}
}

func (m *Manager) remove(path string, size int64, summary *core.RunSummary) {
	fmt.Fprintf(m.out, "Removing local file %s.\n", path)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			summary.Skip()
			return
		}
		m.logger.Error("cannot remove file", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(m.out, "Could not remove local file %s: %v\n", path, err)
		summary.Fail(path, err)
		return
	}
	m.logger.Info("removed local file", zap.String("path", path), zap.Int64("size", size))

	if m.cfg.RemoveSidecar {
		if err := os.Remove(sidecar.PathFor(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("cannot remove sidecar", zap.String("path", path), zap.Error(err))
		}
	}
	summary.Succeed(size)
}
