// Package cache persists the latest snapshot fetched from each device and
// decides whether it is still fresh enough to answer from.
//
// A snapshot is one JSON file per device. Its mtime is the fetch time, so
// freshness needs only a stat. Writes go to a temp file that is renamed over
// the target, so readers never see a partial snapshot.
package cache

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rileyhilliard/oltstat/internal/document"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
)

// Policy says where a device's snapshot lives and how long it stays fresh.
type Policy struct {
	Path    string
	TTL     time.Duration
	Enabled bool
	Host    string
}

// Store reads and writes snapshots.
type Store struct {
	// SortSpec controls key order in written snapshots.
	SortSpec document.SortSpec

	log logger.Logger
	now func() time.Time
}

// New creates a Store that writes snapshots in document.DefaultSortSpec order.
func New(log logger.Logger) *Store {
	if log == nil {
		log = logger.Noop()
	}
	return &Store{
		SortSpec: document.DefaultSortSpec,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for freshness checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// age returns the snapshot's age, or false if there is no snapshot file.
func (s *Store) age(p Policy) (time.Duration, bool) {
	st, err := os.Stat(p.Path)
	if err != nil || !st.Mode().IsRegular() {
		return 0, false
	}
	return s.now().Sub(st.ModTime()), true
}

// IsFresh reports whether a snapshot exists and is no older than the TTL.
func (s *Store) IsFresh(p Policy) bool {
	if !p.Enabled {
		return false
	}
	age, ok := s.age(p)
	return ok && age <= p.TTL
}

// LoadIfFresh returns the snapshot if caching is enabled and the snapshot
// is fresh. A snapshot that fails to parse counts as a miss; the next
// locked fetch overwrites it.
func (s *Store) LoadIfFresh(p Policy) (any, bool, error) {
	s.log.Debug("cache: enabled=%t path=%s ttl=%s", p.Enabled, p.Path, p.TTL)
	if !p.Enabled {
		s.log.Debug("cache: disabled")
		return nil, false, nil
	}

	age, ok := s.age(p)
	if !ok {
		s.log.Debug("cache: miss (no file)")
		return nil, false, nil
	}
	if age > p.TTL {
		s.log.Debug("cache: stale age=%.1fs > ttl", age.Seconds())
		return nil, false, nil
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			// Replaced or removed between stat and read.
			return nil, false, nil
		}
		return nil, false, errors.WrapWithCode(err, errors.ErrPersist,
			fmt.Sprintf("Cannot read cache file %s", p.Path),
			"Check permissions on the cache file")
	}

	doc, err := document.Decode(data)
	if err != nil {
		s.log.Warn("cache: ignoring corrupt snapshot %s: %v", p.Path, err)
		return nil, false, nil
	}

	s.log.Debug("cache: hit age=%.1fs", age.Seconds())
	return doc, true, nil
}

// Save writes doc as the device's snapshot. It does nothing when caching is
// disabled.
func (s *Store) Save(p Policy, doc any) error {
	if !p.Enabled {
		return nil
	}

	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Debug("cache: failed to create directory %s: %v", dir, err)
		return errors.WrapWithCode(err, errors.ErrPersist,
			fmt.Sprintf("Cannot create cache directory %s", dir),
			"Check permissions.")
	}

	if !Writable(dir) {
		return errors.New(errors.ErrPersist,
			fmt.Sprintf("Cache directory %s is not writable by user %s", dir, currentUser()),
			fmt.Sprintf("Run: sudo chown -R zabbix:zabbix %s", dir))
	}

	data, err := document.Encode(doc, s.SortSpec)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPersist,
			"Failed to save cache",
			"The fetched document could not be encoded")
	}

	if err := writeAndRename(p.Path, data); err != nil {
		s.log.Debug("cache: failed to write %s: %v", p.Path, err)
		return errors.WrapWithCode(err, errors.ErrPersist,
			fmt.Sprintf("Cannot write cache file %s", p.Path),
			"Check permissions.")
	}

	s.log.Debug("cache: wrote %s (%d bytes)", p.Path, len(data))
	return nil
}

// writeAndRename replaces path with data through a sibling temp file. Each
// writer gets its own temp name, so overlapping saves for one host both
// succeed and the last rename wins.
func writeAndRename(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Cat returns the raw bytes of a snapshot file, whatever its age.
func Cat(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New(errors.ErrPersist,
				fmt.Sprintf("cache file not found: %s", path),
				"Run without --cat-cache once to populate it")
		}
		return nil, errors.WrapWithCode(err, errors.ErrPersist,
			fmt.Sprintf("Cannot read cache file %s", path),
			"Check permissions on the cache file")
	}
	return data, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "uid=" + strconv.Itoa(os.Getuid())
}
