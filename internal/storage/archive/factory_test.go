package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/archivist/internal/config"
	"github.com/newthinker/archivist/internal/core"
)

func TestNew_LocalFS(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Type: config.StorageLocalFS,
		Path: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", store)
	}
}

func TestNew_S3(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Type: config.StorageS3,
		S3: config.S3Config{
			Bucket:    "b",
			Endpoint:  "http://127.0.0.1:9000",
			AccessKey: "a",
			SecretKey: "s",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Bucket() != "b" {
		t.Errorf("expected bucket b, got %s", store.Bucket())
	}
}

func TestNew_MinIO(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Type:  config.StorageMinIO,
		MinIO: config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*MinIOStorage); !ok {
		t.Errorf("expected *MinIOStorage, got %T", store)
	}
}

func TestNew_Unknown(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Type: "tape"})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
	if store != nil {
		t.Error("expected nil store on error")
	}
}

func TestNew_S3MissingBucket(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Type: config.StorageS3,
		S3:   config.S3Config{AccessKey: "a", SecretKey: "s"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if store != nil {
		t.Error("expected nil store on error")
	}
}
