// Package checksum computes streaming content digests for archived files.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChunkSize is the read size used when streaming file content.
const ChunkSize = 4096

// Reader returns the lowercase hex MD5 of everything read from r.
// On a read error no digest is returned.
func Reader(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the lowercase hex MD5 of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(f)
}

// Normalize strips the surrounding quotes S3 puts on ETags.
func Normalize(etag string) string {
	return strings.Trim(strings.TrimSpace(etag), `"`)
}

// Equal reports whether two hex digests are byte-for-byte identical once
// quotes are stripped.
// An empty digest never matches.
func Equal(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	return a == b
}

// IsMultipart reports whether etag has the "<hex>-<parts>" form produced by
// multipart uploads, which is not a plain MD5 of the content.
func IsMultipart(etag string) bool {
	return strings.Contains(Normalize(etag), "-")
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer honours ChunkSize.
type onlyReader struct {
	io.Reader
}
