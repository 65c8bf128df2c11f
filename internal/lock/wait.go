package lock

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Outcome is the result of WaitForRefresh.
type Outcome int

const (
	// TimedOut means neither the snapshot nor the lock changed in time.
	TimedOut Outcome = iota
	// Fresh means another process refreshed the snapshot.
	Fresh
	// Stale means the holder stopped touching the lock and we now own it.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "timed out"
	}
}

const (
	// DefaultWaitTimeout bounds WaitForRefresh when no timeout is given.
	DefaultWaitTimeout = 30 * time.Second
	// PollInterval is the longest WaitForRefresh sleeps between checks.
	PollInterval = 250 * time.Millisecond
)

// WaitForRefresh blocks until isFresh reports true, the lock goes stale, or
// timeout elapses. Changes in the lock's directory wake it early; polling
// every PollInterval bounds the wait when change notification is
// unavailable.
//
// On Stale the lock has been rewritten with our info and the caller must
// Release it.
func (l *FileLock) WaitForRefresh(ctx context.Context, isFresh func() bool, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	wake, stop := l.watch()
	defer stop()

	for {
		if isFresh() {
			l.log.Debug("lock: cache became fresh while waiting")
			return Fresh
		}

		if age, ok := l.age(); ok && age > StaleAfter {
			l.log.Debug("lock: stale lock detected (age=%.1fs), taking over", age.Seconds())
			err := l.takeOver()
			if err == nil {
				return Stale
			}
			l.log.Debug("lock: failed to take over stale lock: %v", err)
		}

		select {
		case <-ctx.Done():
			l.log.Debug("lock: wait cancelled: %v", ctx.Err())
			return TimedOut
		case <-deadline.C:
			l.log.Debug("lock: timeout after %s", timeout)
			return TimedOut
		case <-ticker.C:
		case <-wake:
		}
	}
}

// watch returns a channel that receives when anything in the lock's
// directory changes. On platforms or filesystems without notification
// support the channel is nil and only the ticker drives the loop.
func (l *FileLock) watch() (<-chan struct{}, func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		l.log.Debug("lock: file watching unavailable, polling: %v", err)
		return nil, func() {}
	}
	if err := w.Add(filepath.Dir(l.Path)); err != nil {
		l.log.Debug("lock: cannot watch %s, polling: %v", filepath.Dir(l.Path), err)
		_ = w.Close()
		return nil, func() {}
	}

	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return wake, func() {
		close(done)
		_ = w.Close()
	}
}
