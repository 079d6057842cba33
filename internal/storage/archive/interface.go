// internal/storage/archive/interface.go
package archive

import (
	"context"

	"github.com/newthinker/archivist/internal/core"
)

// Uploader transfers local files into durable storage
type Uploader interface {
	// Upload stores the content of localPath under Key(localPath) and returns
	// what the store now holds. No receipt is returned on failure.
	Upload(ctx context.Context, localPath string, meta map[string]string) (*core.UploadReceipt, error)

	// Key returns the remote key a local path is archived under
	Key(localPath string) string

	// Bucket names the bucket or root the uploader writes to
	Bucket() string
}

// Storage defines read access to objects already in the archive
type Storage interface {
	// Stat returns the stored identity of key, or core.ErrObjectNotFound
	Stat(ctx context.Context, key string) (*core.UploadReceipt, error)
}

// Store is a complete archive backend
type Store interface {
	Uploader
	Storage
}
