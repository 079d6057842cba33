// Package archivetest provides in-process archive stores for tests.
package archivetest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/newthinker/archivist/internal/storage/archive"
)

// NewS3 starts a fake S3 server holding bucket and returns a client for it.
// The server is shut down when the test ends.
func NewS3(t testing.TB, bucket, prefix string) *archive.S3Storage {
	t.Helper()

	backend := s3mem.New()
	if err := backend.CreateBucket(bucket); err != nil {
		t.Fatalf("creating bucket: %v", err)
	}

	faker := gofakes3.New(backend)
	ts := httptest.NewServer(faker.Server())
	t.Cleanup(ts.Close)

	store, err := archive.NewS3(context.Background(), archive.S3Config{
		Bucket:    bucket,
		Endpoint:  ts.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    prefix,
	})
	if err != nil {
		t.Fatalf("creating s3 client: %v", err)
	}
	return store
}
