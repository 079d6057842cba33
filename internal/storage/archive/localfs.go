// internal/storage/archive/localfs.go
package archive

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/newthinker/archivist/internal/core"
)

const localMetaSuffix = ".meta.json"

// LocalFS implements Store on a local or mounted filesystem
type LocalFS struct {
	basePath string
}

type localMeta struct {
	ETag     string            `json:"etag"`
	Size     int64             `json:"size"`
	Metadata map[string]string `json:"metadata"`
}

// NewLocalFS creates a new LocalFS storage
func NewLocalFS(basePath string) (*LocalFS, error) {
	if basePath == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("localfs path must be provided"))
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, fmt.Errorf("creating base path: %w", err))
	}
	return &LocalFS{basePath: basePath}, nil
}

func (l *LocalFS) fullPath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func (l *LocalFS) Bucket() string { return l.basePath }

func (l *LocalFS) Key(localPath string) string {
	return KeyFor("", localPath)
}

func (l *LocalFS) Upload(ctx context.Context, localPath string, meta map[string]string) (*core.UploadReceipt, error) {
	key := l.Key(localPath)
	etag, size, err := l.copyIn(localPath, l.fullPath(key))
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("store %s: %w", key, err))
	}

	data, err := json.Marshal(localMeta{ETag: etag, Size: size, Metadata: meta})
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, err)
	}
	if err := os.WriteFile(l.fullPath(key)+localMetaSuffix, data, 0644); err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("store %s metadata: %w", key, err))
	}

	return l.Stat(ctx, key)
}

// copyIn writes src to dst through a temp file, hashing as it goes.
func (l *LocalFS) copyIn(src, dst string) (string, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", 0, fmt.Errorf("creating directories: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part*")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())

	h := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), in)
	if err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func (l *LocalFS) Stat(ctx context.Context, key string) (*core.UploadReceipt, error) {
	if _, err := os.Stat(l.fullPath(key)); err != nil {
		if os.IsNotExist(err) {
			return nil, core.WrapError(core.ErrObjectNotFound, fmt.Errorf("%s", key))
		}
		return nil, err
	}

	data, err := os.ReadFile(l.fullPath(key) + localMetaSuffix)
	if err != nil {
		return nil, fmt.Errorf("reading %s metadata: %w", key, err)
	}
	var meta localMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding %s metadata: %w", key, err)
	}

	return &core.UploadReceipt{
		Bucket:   l.basePath,
		Key:      key,
		ETag:     meta.ETag,
		Size:     meta.Size,
		Metadata: meta.Metadata,
	}, nil
}
