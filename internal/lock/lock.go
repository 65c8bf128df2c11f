// Package lock coordinates device fetches between independent processes on
// one machine. The lock is a file created with O_EXCL next to the snapshot
// it protects; whoever creates it fetches, everyone else waits for the
// snapshot to turn fresh.
package lock

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/util"
)

// StaleAfter is how long a lock file may go untouched before a waiter
// assumes its holder died and takes it over. It is independent of the
// snapshot TTL.
const StaleAfter = 10 * time.Second

// FileLock is a lock file for one device.
type FileLock struct {
	Path string    // The lock file path
	Info *LockInfo // Info about us, written into the file when we hold it

	log  logger.Logger
	now  func() time.Time
	held bool
}

// New returns a lock at path for device. Nothing touches the filesystem
// until TryAcquire.
func New(path, device string, log logger.Logger) *FileLock {
	if log == nil {
		log = logger.Noop()
	}
	return &FileLock{
		Path: path,
		Info: NewLockInfo(device),
		log:  log,
		now:  time.Now,
	}
}

// PathFor returns the lock path for device, a sibling of the snapshot file.
func PathFor(cacheFile, device string) string {
	return filepath.Join(filepath.Dir(cacheFile), util.SanitizeHost(device)+".lock")
}

// TryAcquire creates the lock file, failing with ErrLocked if it already
// exists. It never waits.
func (l *FileLock) TryAcquire() error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to create lock directory for %s", l.Path),
			"Check permissions on the cache directory")
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			l.log.Debug("lock: already exists %s", l.Path)
			return ErrLocked
		}
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to create lock file %s", l.Path),
			"Check permissions on the cache directory")
	}
	l.held = true

	// Holder info is diagnostic; a lock without it still excludes others.
	if data, err := l.Info.Marshal(); err == nil {
		if _, err := f.Write(data); err != nil {
			l.log.Debug("lock: failed to write holder info: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		l.log.Debug("lock: failed to close %s: %v", l.Path, err)
	}

	l.log.Debug("lock: acquired %s", l.Path)
	return nil
}

// Release removes the lock file. Releasing twice, or releasing a lock whose
// file is already gone, is not an error. A file that another process has
// since taken over is left in place.
func (l *FileLock) Release() error {
	if l == nil || !l.held {
		return nil
	}
	l.held = false

	if data, err := os.ReadFile(l.Path); err == nil {
		if info, err := ParseLockInfo(data); err == nil && info.Token != "" && info.Token != l.Info.Token {
			l.log.Warn("lock: %s now held by %s, leaving it", l.Path, info)
			return nil
		}
	}

	if err := os.Remove(l.Path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			l.log.Debug("lock: already released %s", l.Path)
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to remove lock file %s", l.Path),
			fmt.Sprintf("Remove it by hand: rm %s", l.Path))
	}
	l.log.Debug("lock: released %s", l.Path)
	return nil
}

// Held reports whether this process currently owns the lock.
func (l *FileLock) Held() bool {
	return l.held
}

// Exists reports whether the lock file is present, whoever holds it.
func (l *FileLock) Exists() bool {
	_, err := os.Stat(l.Path)
	return err == nil
}

// Holder returns information about who holds the lock (if readable).
func (l *FileLock) Holder() string {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return "unknown"
	}
	info, err := ParseLockInfo(data)
	if err != nil {
		// Fall back to raw content
		if s := strings.TrimSpace(string(data)); s != "" {
			return s
		}
		return "unknown"
	}
	return info.String()
}

// age returns how long ago the lock file was last modified, or false if
// there is no lock file.
func (l *FileLock) age() (time.Duration, bool) {
	st, err := os.Stat(l.Path)
	if err != nil {
		return 0, false
	}
	return l.now().Sub(st.ModTime()), true
}

// takeOver claims a stale lock file by rewriting it with our info, which
// also refreshes its mtime so other waiters stop treating it as stale.
func (l *FileLock) takeOver() error {
	data, err := l.Info.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.Path, data, 0o644); err != nil {
		return err
	}
	now := l.now()
	if err := os.Chtimes(l.Path, now, now); err != nil {
		return err
	}
	l.held = true
	return nil
}
