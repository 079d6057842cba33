package archive

import (
	"path"
	"path/filepath"
	"strings"
)

// KeyFor derives the remote key for an absolute local path. Without a
// prefix the key is the slash-separated absolute path itself, the layout
// of existing archives; with a prefix the path is nested under it.
// Re-archiving the same path always resolves to the same object.
func KeyFor(prefix, localPath string) string {
	key := filepath.ToSlash(filepath.Clean(localPath))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, strings.TrimLeft(key, "/"))
}

// RelativeKeyFor is KeyFor without a leading separator, for stores that
// reject object names starting with "/".
func RelativeKeyFor(prefix, localPath string) string {
	return strings.TrimLeft(KeyFor(prefix, localPath), "/")
}
