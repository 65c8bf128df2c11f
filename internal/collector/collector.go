// Package collector answers "what does this OLT look like right now": from
// the snapshot cache when it is fresh, otherwise by fetching under the
// per-host lock so concurrent pollers share one session.
package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/oltstat/internal/cache"
	"github.com/rileyhilliard/oltstat/internal/document"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/lock"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/metrics"
	"github.com/rileyhilliard/oltstat/internal/transport"
	"golang.org/x/sync/singleflight"
)

// Collector composes the transport, cache and lock.
type Collector struct {
	// LockTimeout bounds how long to wait for another process's fetch.
	// Zero means lock.DefaultWaitTimeout.
	LockTimeout time.Duration

	// SortSpec drives array normalization after a fetch.
	SortSpec document.SortSpec

	fetcher transport.Fetcher
	store   *cache.Store
	metrics *metrics.Recorder
	log     logger.Logger
	group   singleflight.Group
}

// New creates a Collector. rec may be nil.
func New(fetcher transport.Fetcher, store *cache.Store, rec *metrics.Recorder, log logger.Logger) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		SortSpec: document.DefaultSortSpec,
		fetcher:  fetcher,
		store:    store,
		metrics:  rec,
		log:      log,
	}
}

// GetAll returns the current document for req.Host. Callers in the same
// process asking for the same snapshot share one result; the document must
// be treated as read-only.
func (c *Collector) GetAll(ctx context.Context, req transport.Request, policy cache.Policy) (any, error) {
	key := policy.Path + "\x00" + req.Host
	doc, err, shared := c.group.Do(key, func() (any, error) {
		return c.getAll(ctx, req, policy)
	})
	if shared {
		c.log.Debug("collector: shared in-flight result for %s", req.Host)
	}
	return doc, err
}

func (c *Collector) getAll(ctx context.Context, req transport.Request, policy cache.Policy) (any, error) {
	doc, ok, err := c.store.LoadIfFresh(policy)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveCache(req.Host, ok)
	if ok {
		return doc, nil
	}

	fl := lock.New(lock.PathFor(policy.Path, policy.Host), policy.Host, c.log)
	err = fl.TryAcquire()
	switch {
	case err == nil:
		return c.fetchAndSave(ctx, req, policy, fl)

	case stderrors.Is(err, lock.ErrLocked):
		return c.waitThenFetch(ctx, req, policy, fl)

	case !policy.Enabled:
		c.log.Debug("lock: %v; cache disabled, fetching without lock", errors.OneLine(err))
		return c.fetch(ctx, req)

	default:
		dir := filepath.Dir(policy.Path)
		return nil, errors.WrapWithCode(err, errors.ErrPersist,
			fmt.Sprintf("Cannot lock cache directory %s", dir),
			fmt.Sprintf("Run: sudo chown -R zabbix:zabbix %s", dir))
	}
}

// waitThenFetch handles a lock somebody else holds.
func (c *Collector) waitThenFetch(ctx context.Context, req transport.Request, policy cache.Policy, fl *lock.FileLock) (any, error) {
	c.log.Debug("lock: held by %s, waiting", fl.Holder())

	// With caching off there is no snapshot to turn fresh; the holder
	// finishing is the signal instead.
	isFresh := func() bool { return c.store.IsFresh(policy) }
	if !policy.Enabled {
		isFresh = func() bool { return !fl.Exists() }
	}

	outcome := fl.WaitForRefresh(ctx, isFresh, c.LockTimeout)
	c.metrics.ObserveWait(req.Host, outcome.String())
	c.log.Debug("lock: wait ended: %s", outcome)

	switch outcome {
	case lock.Fresh:
		doc, ok, err := c.store.LoadIfFresh(policy)
		if err == nil && ok {
			return doc, nil
		}
		c.log.Debug("lock: snapshot gone after refresh, fetching without lock")
		return c.fetch(ctx, req)

	case lock.Stale:
		return c.fetchAndSave(ctx, req, policy, fl)

	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.log.Debug("lock: proceeding without lock after timeout")
		return c.fetch(ctx, req)
	}
}

// fetchAndSave runs while holding fl and always releases it.
func (c *Collector) fetchAndSave(ctx context.Context, req transport.Request, policy cache.Policy, fl *lock.FileLock) (any, error) {
	defer func() {
		if err := fl.Release(); err != nil {
			c.log.Warn("lock: %s", errors.OneLine(err))
		}
	}()

	doc, err := c.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(policy, doc); err != nil {
		return nil, err
	}
	if policy.Enabled {
		if st, err := os.Stat(policy.Path); err == nil {
			c.metrics.ObserveSnapshot(req.Host, st.Size())
		}
	}
	return doc, nil
}

// fetch talks to the device and normalizes array order.
func (c *Collector) fetch(ctx context.Context, req transport.Request) (any, error) {
	start := time.Now()
	doc, err := c.fetcher.FetchAll(ctx, req)
	c.metrics.ObserveFetch(req.Host, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return document.Normalize(doc, c.SortSpec), nil
}
