package cache

import (
	"os"
	"path/filepath"

	"github.com/rileyhilliard/oltstat/internal/util"
)

// SystemDir is the packaged cache location, owned by the monitoring user.
const SystemDir = "/var/cache/cambium-olt"

// candidateDirs lists where snapshots may go, most preferred first.
// Overridden in tests.
var candidateDirs = func(preferred string) []string {
	dirs := []string{}
	if preferred != "" {
		dirs = append(dirs, preferred)
	}
	return append(dirs, SystemDir, "/tmp")
}

// DefaultDir returns the first candidate directory that exists and is
// writable, falling back to os.TempDir(). preferred comes from the cache.dir
// setting or OLT_CACHE_DIR and may be empty.
func DefaultDir(preferred string) string {
	for _, dir := range candidateDirs(preferred) {
		if isWritableDir(dir) {
			return dir
		}
	}
	return os.TempDir()
}

// DefaultPath returns the snapshot path for host inside DefaultDir.
func DefaultPath(host, preferred string) string {
	return filepath.Join(DefaultDir(preferred), FileName(host))
}

// FileName is the snapshot file name for host.
func FileName(host string) string {
	return util.SanitizeHost(host) + ".stats.json"
}

func isWritableDir(dir string) bool {
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return false
	}
	return Writable(dir)
}
