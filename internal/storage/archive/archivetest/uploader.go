package archivetest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/newthinker/archivist/internal/checksum"
	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/storage/archive"
)

// Uploader is an in-memory Uploader that records every call and can be told
// to fail or to report a wrong digest for specific paths.
type Uploader struct {
	mu       sync.Mutex
	bucket   string
	calls    []string
	failures map[string]error
	etags    map[string]string
}

var _ archive.Uploader = (*Uploader)(nil)

// NewUploader creates a recording uploader
func NewUploader(bucket string) *Uploader {
	return &Uploader{
		bucket:   bucket,
		failures: make(map[string]error),
		etags:    make(map[string]string),
	}
}

// FailOn makes uploads of localPath return err
func (u *Uploader) FailOn(localPath string, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures[localPath] = err
}

// ReportETag makes the receipt for localPath carry etag instead of the
// real digest
func (u *Uploader) ReportETag(localPath, etag string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.etags[localPath] = etag
}

// Calls returns the local paths uploaded so far, in order
func (u *Uploader) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

func (u *Uploader) Bucket() string { return u.bucket }

func (u *Uploader) Key(localPath string) string {
	return archive.KeyFor("", localPath)
}

func (u *Uploader) Upload(ctx context.Context, localPath string, meta map[string]string) (*core.UploadReceipt, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.calls = append(u.calls, localPath)
	if err, ok := u.failures[localPath]; ok {
		return nil, core.WrapError(core.ErrUploadFailed, err)
	}

	etag, ok := u.etags[localPath]
	if !ok {
		sum, err := checksum.File(localPath)
		if err != nil {
			return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("reading %s: %w", localPath, err))
		}
		etag = `"` + sum + `"`
	}

	return &core.UploadReceipt{
		Bucket:   u.bucket,
		Key:      u.Key(localPath),
		ETag:     etag,
		Size:     sizeOf(localPath),
		Metadata: meta,
	}, nil
}

func sizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
