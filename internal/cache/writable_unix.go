//go:build unix

package cache

import "golang.org/x/sys/unix"

// Writable reports whether the current user may create files in dir.
func Writable(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}
