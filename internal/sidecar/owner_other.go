//go:build !unix

package sidecar

import "os"

// Owner is unsupported off unix; ownership is left blank.
func Owner(info os.FileInfo) (string, string) {
	return "", ""
}
