package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/trellis/vm"
)

// ---------------------------------------------------------------------------
// Collector: periodic incremental collection
// ---------------------------------------------------------------------------

// CollectorStats holds the result of one collector pass.
type CollectorStats struct {
	Skipped   bool // the interpreter was busy in a checkpoint or closed
	GC        vm.GCStats
	Timestamp time.Time
}

// Collector runs incremental collection steps on a worker's interpreter at
// a fixed interval, so long-running hosts reclaim garbage between requests
// without calling FullGC themselves.
type Collector struct {
	worker   *Worker
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle

	passes    atomic.Uint64
	lastStats atomic.Value // *CollectorStats
}

// DefaultCollectInterval is used when no interval is configured.
const DefaultCollectInterval = 5 * time.Second

// NewCollector creates a collector for w. A non-positive interval means
// DefaultCollectInterval.
func NewCollector(w *Worker, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	c := &Collector{worker: w, interval: interval}
	c.enabled.Store(true)
	return c
}

// Start begins the collection goroutine. Calling it again while running
// does nothing.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})
	go c.loop(c.stop, c.stopped)
}

// Stop halts the collection goroutine and waits for it to exit. It is safe
// to call on a collector that was never started.
func (c *Collector) Stop() {
	c.mu.Lock()
	stopCh := c.stop
	stoppedCh := c.stopped
	c.stop = nil
	c.stopped = nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled pauses or resumes collection without stopping the goroutine.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// IsEnabled reports whether collection is enabled.
func (c *Collector) IsEnabled() bool {
	return c.enabled.Load()
}

// Interval returns the collection interval.
func (c *Collector) Interval() time.Duration {
	return c.interval
}

// Passes returns the number of passes run, skipped ones included.
func (c *Collector) Passes() uint64 {
	return c.passes.Load()
}

// LastStats returns the most recent pass, or nil before the first one.
func (c *Collector) LastStats() *CollectorStats {
	v := c.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*CollectorStats)
}

// CollectNow runs one pass immediately.
func (c *Collector) CollectNow() (*CollectorStats, error) {
	return c.collect()
}

func (c *Collector) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if c.enabled.Load() {
				if _, err := c.collect(); err != nil {
					log.Warningf("collector pass failed: %v", err)
				}
			}
		}
	}
}

func (c *Collector) collect() (*CollectorStats, error) {
	v, err := c.worker.Do(func(i *Interp) (any, error) {
		stats := &CollectorStats{Timestamp: time.Now()}
		if i.IsClosed() || i.OpenArenas() > 0 {
			stats.Skipped = true
			return stats, nil
		}
		stats.GC = i.IncrementalGC()
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	stats := v.(*CollectorStats)
	c.passes.Add(1)
	c.lastStats.Store(stats)
	return stats, nil
}
