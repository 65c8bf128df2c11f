//go:build !unix

package cache

import "os"

// Writable reports whether the current user may create files in dir.
// Without access(2) the only reliable check is to try.
func Writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
