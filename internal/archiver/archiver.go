// Package archiver uploads local files to the archive store and records
// each upload in a sidecar next to the file.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/sidecar"
	"github.com/newthinker/archivist/internal/storage/archive"
	"go.uber.org/zap"
)

// Config holds archive run options
type Config struct {
	RunID  string
	DryRun bool
}

// Manager runs the archive phase
type Manager struct {
	uploader archive.Uploader
	cfg      Config
	logger   *zap.Logger
}

// New creates an archive Manager
func New(uploader archive.Uploader, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}
}

// ArchivePath uploads path, or every file below it when path is a
// directory. Files that already carry a sidecar, and sidecars themselves,
// are skipped. A failure on one file never stops the others; only a
// missing root path or cancellation ends the run early.
func (m *Manager) ArchivePath(ctx context.Context, path string) (*core.RunSummary, error) {
	summary := core.NewRunSummary(core.PhaseArchive, m.cfg.RunID)
	defer summary.Finish()

	root, err := filepath.Abs(path)
	if err != nil {
		return summary, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return summary, core.WrapError(core.ErrPathNotFound, fmt.Errorf("%s", root))
		}
		return summary, err
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			m.logger.Warn("not a regular file, skipping", zap.String("path", root))
			summary.Skip()
			return summary, nil
		}
		m.archiveFile(ctx, root, info, summary)
		return summary, ctx.Err()
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			m.logger.Error("cannot read path, skipping", zap.String("path", p), zap.Error(err))
			summary.Fail(p, err)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if sidecar.IsMetadataFile(p) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			m.logger.Error("cannot stat file, skipping", zap.String("path", p), zap.Error(err))
			summary.Fail(p, err)
			return nil
		}
		m.archiveFile(ctx, p, info, summary)
		return nil
	})
	return summary, err
}

// archiveFile uploads one regular file and writes its sidecar. The outcome
// is recorded in summary.
func (m *Manager) archiveFile(ctx context.Context, path string, info fs.FileInfo, summary *core.RunSummary) {
	log := m.logger.With(zap.String("path", path))

	if sidecar.IsMetadataFile(path) {
		log.Info("sidecar file, skipping")
		summary.Skip()
		return
	}

	archived, err := sidecar.Exists(path)
	if err != nil {
		log.Error("cannot check sidecar", zap.Error(err))
		summary.Fail(path, err)
		return
	}
	if archived {
		log.Info("already archived, skipping")
		summary.Skip()
		return
	}

	if m.cfg.DryRun {
		log.Info("would archive file",
			zap.String("key", m.uploader.Key(path)),
			zap.Int64("size", info.Size()),
		)
		summary.Skip()
		return
	}

	meta := sidecar.MetadataFor(info)
	log.Info("archiving file", zap.String("key", m.uploader.Key(path)))

	receipt, err := m.uploader.Upload(ctx, path, meta.Map())
	if err != nil {
		log.Error("upload failed", zap.Error(err))
		summary.Fail(path, err)
		return
	}

	if err := sidecar.Write(path, sidecar.NewRecord(receipt, meta)); err != nil {
		log.Error("uploaded but sidecar not written, file stays eligible for archiving", zap.Error(err))
		summary.Fail(path, err)
		return
	}

	log.Debug("archived file",
		zap.String("bucket", receipt.Bucket),
		zap.String("etag", receipt.ETag),
		zap.Int64("size", receipt.Size),
	)
	summary.Succeed(receipt.Size)
}
