// Package verifier checks archived files against the digest recorded in
// their sidecars and reports a verified flag per file.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/newthinker/archivist/internal/checksum"
	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/report"
	"github.com/newthinker/archivist/internal/sidecar"
	"github.com/newthinker/archivist/internal/storage/archive"
	"go.uber.org/zap"
)

// Config holds verify run options
type Config struct {
	RunID string
}

// Manager runs the verify phase
type Manager struct {
	cfg    Config
	remote archive.Storage
	logger *zap.Logger
}

// New creates a verify Manager. When remote is non-nil a file only
// verifies if the store still holds an object with the recorded ETag.
func New(cfg Config, remote archive.Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		remote: remote,
		logger: logger,
	}
}

// VerifyPath checks every archived file under path and sends one result
// per checked file to sink. Files whose original is gone are skipped
// without a result; files without a sidecar never produce a verified
// result.
func (m *Manager) VerifyPath(ctx context.Context, path string, sink report.Sink) (*core.RunSummary, error) {
	summary := core.NewRunSummary(core.PhaseVerify, m.cfg.RunID)
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
		return summary, m.verifySingle(ctx, root, sink, summary)
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
		if d.IsDir() || !sidecar.IsMetadataFile(p) {
			return nil
		}
		return m.verifySidecar(ctx, p, sink, summary)
	})
	return summary, err
}

// verifySingle handles a file argument, which may be either a sidecar or a
// data file. A data file with no sidecar is reported unverified.
func (m *Manager) verifySingle(ctx context.Context, path string, sink report.Sink, summary *core.RunSummary) error {
	if sidecar.IsMetadataFile(path) {
		return m.verifySidecar(ctx, path, sink, summary)
	}

	ok, err := sidecar.Exists(path)
	if err == nil && ok {
		return m.verifySidecar(ctx, sidecar.PathFor(path), sink, summary)
	}
	if err == nil {
		err = fmt.Errorf("no sidecar for %s", path)
	}
	m.logger.Warn("file not archived", zap.String("path", path), zap.Error(err))
	return m.emit(sink, summary, core.VerificationResult{LocalPath: path}, 0, err)
}

// verifySidecar checks the data file described by sidecarPath.
func (m *Manager) verifySidecar(ctx context.Context, sidecarPath string, sink report.Sink, summary *core.RunSummary) error {
	localPath, _ := sidecar.OriginalFor(sidecarPath)
	log := m.logger.With(zap.String("path", localPath))

	info, err := os.Lstat(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Already removed by an earlier cleanup
			log.Debug("original no longer present, skipping")
			summary.Skip()
			return nil
		}
		log.Error("cannot stat original", zap.Error(err))
		return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath}, 0, err)
	}
	if !info.Mode().IsRegular() {
		err := fmt.Errorf("%s is not a regular file", localPath)
		log.Warn("original is not a regular file", zap.Error(err))
		return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath}, 0, err)
	}

	rec, err := sidecar.Read(sidecarPath)
	if err != nil {
		log.Error("sidecar unreadable, not verified", zap.Error(err))
		return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath}, 0, err)
	}

	archived := rec.ArchivedFile(localPath)

	digest, err := checksum.File(localPath)
	if err != nil {
		log.Error("cannot compute digest", zap.Error(err))
		return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath}, 0, err)
	}

	if !checksum.Equal(digest, archived.Digest) {
		err := core.WrapError(core.ErrDigestMismatch,
			fmt.Errorf("local %s, recorded %s", digest, archived.Digest))
		log.Warn("digest mismatch", zap.Error(err))
		return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath}, 0, err)
	}

	if m.remote != nil {
		if err := m.checkRemote(ctx, archived); err != nil {
			log.Warn("remote check failed", zap.String("key", archived.RemoteKey), zap.Error(err))
			return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath}, 0, err)
		}
	}

	log.Debug("verified", zap.String("etag", archived.Digest), zap.String("key", archived.RemoteKey))
	return m.emit(sink, summary, core.VerificationResult{LocalPath: localPath, Verified: true}, info.Size(), nil)
}

// checkRemote confirms the store still holds the object the sidecar names.
func (m *Manager) checkRemote(ctx context.Context, archived core.ArchivedFile) error {
	stat, err := m.remote.Stat(ctx, archived.RemoteKey)
	if err != nil {
		return err
	}
	if !checksum.Equal(stat.ETag, archived.Digest) {
		return core.WrapError(core.ErrDigestMismatch,
			fmt.Errorf("store holds %s, recorded %s", checksum.Normalize(stat.ETag), archived.Digest))
	}
	return nil
}

// emit sends result to sink and counts it. A failure writing to the sink is
// fatal to the run since the report would be incomplete.
func (m *Manager) emit(sink report.Sink, summary *core.RunSummary, result core.VerificationResult, size int64, cause error) error {
	if err := report.ValidatePath(result.LocalPath); err != nil {
		// The row would be misread by clean; count it failed, write nothing.
		m.logger.Error("path cannot be reported", zap.String("path", result.LocalPath), zap.Error(err))
		summary.Fail(result.LocalPath, err)
		return nil
	}
	if err := sink.Add(result); err != nil {
		return err
	}
	if result.Verified {
		summary.Succeed(size)
	} else {
		summary.Fail(result.LocalPath, cause)
	}
	return nil
}
