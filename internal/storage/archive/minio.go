package archive

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/newthinker/archivist/internal/core"
)

// MinIOConfig holds connection settings for a MinIO deployment
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// MinIOStorage implements Store on top of minio-go
type MinIOStorage struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO creates a MinIO storage client
func NewMinIO(cfg MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("minio endpoint must be provided"))
	}
	if cfg.Bucket == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("minio bucket must be provided"))
	}

	// minio-go wants host[:port], not a URL
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
		useSSL = true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		useSSL = false
	}

	client, err := minio.New(strings.TrimSuffix(endpoint, "/"), &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err)
	}

	return &MinIOStorage{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (m *MinIOStorage) Bucket() string { return m.bucket }

func (m *MinIOStorage) Key(localPath string) string {
	return RelativeKeyFor(m.prefix, localPath)
}

func (m *MinIOStorage) Upload(ctx context.Context, localPath string, meta map[string]string) (*core.UploadReceipt, error) {
	key := m.Key(localPath)
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		UserMetadata: meta,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("put %s: %w", key, err))
	}

	receipt, err := m.Stat(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("stat %s: %w", key, err))
	}
	return receipt, nil
}

func (m *MinIOStorage) Stat(ctx context.Context, key string) (*core.UploadReceipt, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, core.WrapError(core.ErrObjectNotFound, fmt.Errorf("%s", key))
		}
		return nil, err
	}

	return &core.UploadReceipt{
		Bucket:   m.bucket,
		Key:      key,
		ETag:     info.ETag,
		Size:     info.Size,
		Metadata: info.UserMetadata,
	}, nil
}
