//go:build unix

package sidecar

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// Owner resolves the user and group names owning a file, falling back to
// the numeric ids when no name is known.
func Owner(info os.FileInfo) (string, string) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", ""
	}

	uid := strconv.FormatUint(uint64(st.Uid), 10)
	gid := strconv.FormatUint(uint64(st.Gid), 10)

	owner := uid
	if u, err := user.LookupId(uid); err == nil {
		owner = u.Username
	}
	group := gid
	if g, err := user.LookupGroupId(gid); err == nil {
		group = g.Name
	}
	return owner, group
}
