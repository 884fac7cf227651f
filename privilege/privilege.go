// Package privilege answers whether the process may reconfigure the host
// time service.
package privilege

// Checker reports elevated privilege.
type Checker func() bool

// IsPrivileged reports whether the current process runs elevated: an
// elevated token on Windows, effective uid 0 elsewhere.
func IsPrivileged() bool {
	return isPrivileged()
}

// Fixed returns a Checker that always answers v.
func Fixed(v bool) Checker {
	return func() bool { return v }
}
