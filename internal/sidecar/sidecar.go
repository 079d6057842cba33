// Package sidecar reads and writes the metadata record kept next to every
// archived file.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/newthinker/archivist/internal/checksum"
	"github.com/newthinker/archivist/internal/core"
)

// Suffix marks a file as the sidecar of the file named by its stem.
const Suffix = ".archived"

// Metadata is the descriptive part of a sidecar record.
type Metadata struct {
	LastModified string `json:"LastModified"`
	Owner        string `json:"Owner"`
	Group        string `json:"Group"`
}

// Record is the on-disk sidecar format.
type Record struct {
	Bucket        string   `json:"Bucket"`
	Key           string   `json:"Key"`
	ETag          string   `json:"ETag"`
	ContentLength int64    `json:"ContentLength"`
	Metadata      Metadata `json:"Metadata"`
}

// NewRecord builds a sidecar record from what the store reported.
func NewRecord(receipt *core.UploadReceipt, meta Metadata) Record {
	return Record{
		Bucket:        receipt.Bucket,
		Key:           receipt.Key,
		ETag:          checksum.Normalize(receipt.ETag),
		ContentLength: receipt.Size,
		Metadata:      meta,
	}
}

// Validate checks the fields verification depends on.
func (r Record) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("missing Key")
	}
	if checksum.Normalize(r.ETag) == "" {
		return fmt.Errorf("missing ETag")
	}
	if r.ContentLength < 0 {
		return fmt.Errorf("negative ContentLength %d", r.ContentLength)
	}
	return nil
}

// ArchivedFile converts the record into the archival state of localPath.
func (r Record) ArchivedFile(localPath string) core.ArchivedFile {
	return core.ArchivedFile{
		LocalPath:    localPath,
		RemoteKey:    r.Key,
		Bucket:       r.Bucket,
		Digest:       checksum.Normalize(r.ETag),
		Size:         r.ContentLength,
		Owner:        r.Metadata.Owner,
		Group:        r.Metadata.Group,
		LastModified: r.Metadata.LastModified,
	}
}

// IsMetadataFile reports whether name is a sidecar file.
func IsMetadataFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, Suffix) && len(base) > len(Suffix)
}

// PathFor returns the sidecar path of localPath.
func PathFor(localPath string) string {
	return localPath + Suffix
}

// OriginalFor returns the data file described by a sidecar path.
func OriginalFor(sidecarPath string) (string, bool) {
	if !IsMetadataFile(sidecarPath) {
		return "", false
	}
	return strings.TrimSuffix(sidecarPath, Suffix), true
}

// Exists reports whether localPath already carries a sidecar.
func Exists(localPath string) (bool, error) {
	_, err := os.Stat(PathFor(localPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Write stores rec as the sidecar of localPath. An existing sidecar is
// never replaced.
func Write(localPath string, rec Record) error {
	path := PathFor(localPath)
	if _, err := os.Stat(path); err == nil {
		return core.WrapError(core.ErrSidecarExists, fmt.Errorf("%s", path))
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating sidecar: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("installing sidecar: %w", err)
	}
	return nil
}

// Read loads and validates the sidecar at sidecarPath. Any failure is
// reported as core.ErrSidecarInvalid.
func Read(sidecarPath string) (*Record, error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, core.WrapError(core.ErrSidecarInvalid, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.WrapError(core.ErrSidecarInvalid, fmt.Errorf("%s: %w", sidecarPath, err))
	}
	if err := rec.Validate(); err != nil {
		return nil, core.WrapError(core.ErrSidecarInvalid, fmt.Errorf("%s: %w", sidecarPath, err))
	}
	rec.ETag = checksum.Normalize(rec.ETag)
	return &rec, nil
}
