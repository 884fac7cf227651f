//go:build unix

package privilege

import "golang.org/x/sys/unix"

func isPrivileged() bool {
	return unix.Geteuid() == 0
}
