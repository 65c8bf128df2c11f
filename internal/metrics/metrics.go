// Package metrics records per-host fetch gauges and writes them in the
// node_exporter textfile format. Each invocation is a short-lived process,
// so everything is a gauge describing the latest attempt.
package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/util"
)

const namespace = "oltstat"

// Recorder holds the gauges for one process. A nil *Recorder discards
// everything, so callers don't need to check.
type Recorder struct {
	reg *prometheus.Registry
	dir string
	log logger.Logger
	now func() time.Time

	fetchDuration *prometheus.GaugeVec
	fetchSuccess  *prometheus.GaugeVec
	lastFetch     *prometheus.GaugeVec
	snapshotBytes *prometheus.GaugeVec
	cacheHit      *prometheus.GaugeVec
	lockWait      *prometheus.GaugeVec
}

// New creates a Recorder that flushes into dir. An empty dir keeps the
// gauges in memory only.
func New(dir string, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.Noop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	hostLabel := []string{"host"}

	return &Recorder{
		reg: reg,
		dir: dir,
		log: log,
		now: time.Now,
		fetchDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of the last session with the OLT.",
		}, hostLabel),
		fetchSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_success",
			Help:      "1 if the last fetch returned a document, 0 otherwise.",
		}, hostLabel),
		lastFetch: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_last_timestamp_seconds",
			Help:      "Unix time the last fetch finished.",
		}, hostLabel),
		snapshotBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Size of the last snapshot written to the cache.",
		}, hostLabel),
		cacheHit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_hit",
			Help:      "1 if the last request was served from a fresh snapshot.",
		}, hostLabel),
		lockWait: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lock_wait_outcome",
			Help:      "1 for the outcome of the last wait on another process's fetch.",
		}, []string{"host", "outcome"}),
	}
}

// WithClock replaces the time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveFetch records one session with host.
func (r *Recorder) ObserveFetch(host string, took time.Duration, err error) {
	if r == nil {
		return
	}
	r.fetchDuration.WithLabelValues(host).Set(took.Seconds())
	r.lastFetch.WithLabelValues(host).Set(float64(r.now().Unix()))
	if err != nil {
		r.fetchSuccess.WithLabelValues(host).Set(0)
		return
	}
	r.fetchSuccess.WithLabelValues(host).Set(1)
}

// ObserveSnapshot records the size of a saved snapshot.
func (r *Recorder) ObserveSnapshot(host string, size int64) {
	if r == nil {
		return
	}
	r.snapshotBytes.WithLabelValues(host).Set(float64(size))
}

// ObserveCache records whether host was served from the cache.
func (r *Recorder) ObserveCache(host string, hit bool) {
	if r == nil {
		return
	}
	v := 0.0
	if hit {
		v = 1
	}
	r.cacheHit.WithLabelValues(host).Set(v)
}

// ObserveWait records how waiting on another fetcher ended.
func (r *Recorder) ObserveWait(host, outcome string) {
	if r == nil {
		return
	}
	r.lockWait.WithLabelValues(host, outcome).Set(1)
}

// TextfilePath is where Flush writes the gauges for host.
func (r *Recorder) TextfilePath(host string) string {
	name := strings.ReplaceAll(util.SanitizeHost(host), ".", "_")
	return filepath.Join(r.dir, namespace+"_"+name+".prom")
}

// Flush writes the gauges for host to the textfile directory. Nothing
// happens without a directory.
func (r *Recorder) Flush(host string) error {
	if r == nil || r.dir == "" {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrPersist,
			"Cannot create metrics directory "+r.dir,
			"Check permissions, or drop --metrics-dir.")
	}

	path := r.TextfilePath(host)
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return errors.WrapWithCode(err, errors.ErrPersist,
			"Cannot write metrics to "+path,
			"Check the metrics directory is writable by the polling user.")
	}
	r.log.Debug("metrics: wrote %s", path)
	return nil
}
