package archive

import (
	"context"
	"fmt"

	"github.com/newthinker/archivist/internal/checksum"
	"github.com/newthinker/archivist/internal/core"
	"go.uber.org/zap"
)

// VerifyingUploader checks the digest the store reports against a digest
// computed locally before the transfer. A receipt is only returned when the
// two agree, so corruption in transit never reaches a sidecar.
type VerifyingUploader struct {
	Uploader
	logger *zap.Logger
}

// NewVerifyingUploader wraps next with a pre-upload digest check
func NewVerifyingUploader(next Uploader, logger *zap.Logger) *VerifyingUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifyingUploader{Uploader: next, logger: logger}
}

func (v *VerifyingUploader) Upload(ctx context.Context, localPath string, meta map[string]string) (*core.UploadReceipt, error) {
	local, err := checksum.File(localPath)
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("pre-upload digest: %w", err))
	}

	receipt, err := v.Uploader.Upload(ctx, localPath, meta)
	if err != nil {
		return nil, err
	}

	if checksum.IsMultipart(receipt.ETag) {
		v.logger.Warn("store returned multipart etag, skipping digest check",
			zap.String("path", localPath),
			zap.String("etag", receipt.ETag),
		)
		return receipt, nil
	}

	if !checksum.Equal(local, receipt.ETag) {
		return nil, core.WrapError(core.ErrDigestMismatch,
			fmt.Errorf("%s: local %s, store %s", localPath, local, checksum.Normalize(receipt.ETag)))
	}
	return receipt, nil
}
