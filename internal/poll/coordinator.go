// Package poll runs periodic re-fetches with at most one in-flight
// fetch per resource key. A tick that fires while the previous fetch is
// still pending is skipped, not queued.
package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Fetcher performs one refresh for a resource key. Errors are counted
// and logged; they never terminate the schedule.
type Fetcher func(ctx context.Context) error

type task struct {
	key      string
	interval time.Duration
	fetch    Fetcher
	stop     chan struct{}

	// inFlight is the single-in-flight guard: a flag, not a queue.
	inFlight atomic.Bool
}

// Coordinator owns all scheduled polls. Every schedule is an explicit
// handle canceled on Close, so no timer outlives its owner.
type Coordinator struct {
	log     *zap.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*task
}

// New constructs a Coordinator. reg may be nil (default registerer).
func New(log *zap.Logger, reg prometheus.Registerer) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		log:     log,
		metrics: NewMetrics(reg),
		ctx:     ctx,
		cancel:  cancel,
		tasks:   map[string]*task{},
	}
}

// Schedule starts polling key every interval, with one immediate fetch.
// Scheduling an already-scheduled key replaces the old schedule.
func (c *Coordinator) Schedule(key string, interval time.Duration, fetch Fetcher) {
	c.Cancel(key)

	t := &task{
		key:      key,
		interval: interval,
		fetch:    fetch,
		stop:     make(chan struct{}),
	}
	c.mu.Lock()
	c.tasks[key] = t
	c.mu.Unlock()

	c.log.Info("poll scheduled", zap.String("key", key), zap.Duration("interval", interval))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.runOnce(t)
		for {
			select {
			case <-t.stop:
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				c.runOnce(t)
			}
		}
	}()
}

// Trigger fires a manual refresh for key, bypassing the interval but
// still respecting the single-in-flight guard. Unknown keys are no-ops.
func (c *Coordinator) Trigger(key string) {
	c.mu.Lock()
	t, ok := c.tasks[key]
	c.mu.Unlock()
	if ok {
		c.runOnce(t)
	}
}

// runOnce starts one fetch unless one is already pending for the key.
func (c *Coordinator) runOnce(t *task) {
	c.metrics.Ticks.WithLabelValues(t.key).Inc()
	if !t.inFlight.CompareAndSwap(false, true) {
		c.metrics.Skips.WithLabelValues(t.key).Inc()
		c.log.Debug("poll tick skipped", zap.String("key", t.key))
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.inFlight.Store(false)

		start := time.Now()
		err := t.fetch(c.ctx)
		c.metrics.Duration.WithLabelValues(t.key).Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.Errors.WithLabelValues(t.key).Inc()
			c.log.Warn("poll fetch failed", zap.String("key", t.key), zap.Error(err))
		}
	}()
}

// Cancel stops the schedule for key. Safe to call for unknown keys.
func (c *Coordinator) Cancel(key string) {
	c.mu.Lock()
	t, ok := c.tasks[key]
	if ok {
		delete(c.tasks, key)
	}
	c.mu.Unlock()
	if ok {
		close(t.stop)
		c.log.Info("poll canceled", zap.String("key", key))
	}
}

// Close cancels every schedule and waits for in-flight fetches.
func (c *Coordinator) Close() {
	c.mu.Lock()
	for key, t := range c.tasks {
		close(t.stop)
		delete(c.tasks, key)
	}
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}
