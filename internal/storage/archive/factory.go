package archive

import (
	"context"
	"fmt"

	"github.com/newthinker/archivist/internal/config"
	"github.com/newthinker/archivist/internal/core"
)

// New creates a storage backend based on configuration.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case config.StorageS3:
		s, err := NewS3(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageMinIO:
		m, err := NewMinIO(MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			Prefix:    cfg.MinIO.Prefix,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.StorageLocalFS:
		l, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type: %s", cfg.Type))
	}
}
