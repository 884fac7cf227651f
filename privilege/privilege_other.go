//go:build !unix && !windows

package privilege

func isPrivileged() bool { return false }
