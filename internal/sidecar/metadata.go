package sidecar

import (
	"os"
	"strconv"
)

// MetadataFor captures the descriptive metadata of a local file at upload
// time.
func MetadataFor(info os.FileInfo) Metadata {
	owner, group := Owner(info)
	return Metadata{
		LastModified: strconv.FormatInt(info.ModTime().Unix(), 10),
		Owner:        owner,
		Group:        group,
	}
}

// Map renders the metadata as object user metadata.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"LastModified": m.LastModified,
		"Owner":        m.Owner,
		"Group":        m.Group,
	}
}
