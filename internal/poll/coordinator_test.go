package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSchedule_ImmediateAndPeriodic(t *testing.T) {
	t.Parallel()
	c := New(nil, prometheus.NewRegistry())
	defer c.Close()

	var calls atomic.Int64
	c.Schedule("alerts", 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("want at least 3 fetches (one immediate), got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSlowFetchSkipsTicks(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := New(nil, reg)
	defer c.Close()

	release := make(chan struct{})
	var calls atomic.Int64
	c.Schedule("sensors", 15*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	// the immediate fetch blocks; every tick meanwhile must be skipped,
	// never queued
	time.Sleep(80 * time.Millisecond)
	close(release)

	if got := calls.Load(); got != 1 {
		t.Fatalf("overlapping fetches: got %d concurrent starts, want 1", got)
	}
	skips := testutil.ToFloat64(c.metrics.Skips.WithLabelValues("sensors"))
	if skips < 1 {
		t.Fatalf("skipped ticks must be counted, got %v", skips)
	}
}

func TestTrigger(t *testing.T) {
	t.Parallel()
	c := New(nil, prometheus.NewRegistry())
	defer c.Close()

	t.Run("unknown key is a no-op", func(t *testing.T) {
		c.Trigger("nope")
	})

	release := make(chan struct{})
	var calls atomic.Int64
	c.Schedule("devices", time.Hour, func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	waitFor(t, func() bool { return calls.Load() == 1 })

	// the immediate fetch is still pending, so a manual trigger is
	// guarded off
	c.Trigger("devices")
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("trigger bypassed the in-flight guard: %d calls", calls.Load())
	}
	close(release)

	waitFor(t, func() bool {
		c.Trigger("devices")
		return calls.Load() >= 2
	})
}

func TestFetchErrorKeepsSchedule(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := New(nil, reg)
	defer c.Close()

	var calls atomic.Int64
	c.Schedule("alerts", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	})

	waitFor(t, func() bool { return calls.Load() >= 3 })
	if errs := testutil.ToFloat64(c.metrics.Errors.WithLabelValues("alerts")); errs < 3 {
		t.Fatalf("errors must be counted, got %v", errs)
	}
}

func TestCancelStopsSchedule(t *testing.T) {
	t.Parallel()
	c := New(nil, prometheus.NewRegistry())
	defer c.Close()

	var calls atomic.Int64
	c.Schedule("alerts", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	waitFor(t, func() bool { return calls.Load() >= 1 })

	c.Cancel("alerts")
	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if calls.Load() > after+1 {
		t.Fatalf("fetches continued after cancel: %d -> %d", after, calls.Load())
	}

	c.Cancel("alerts") // second cancel is safe
}

func TestScheduleReplacesExisting(t *testing.T) {
	t.Parallel()
	c := New(nil, prometheus.NewRegistry())
	defer c.Close()

	var old, cur atomic.Int64
	c.Schedule("alerts", 10*time.Millisecond, func(context.Context) error {
		old.Add(1)
		return nil
	})
	waitFor(t, func() bool { return old.Load() >= 1 })

	c.Schedule("alerts", 10*time.Millisecond, func(context.Context) error {
		cur.Add(1)
		return nil
	})
	waitFor(t, func() bool { return cur.Load() >= 2 })

	frozen := old.Load()
	time.Sleep(50 * time.Millisecond)
	if old.Load() != frozen {
		t.Fatal("replaced schedule kept running")
	}
}

func TestCloseWaitsForInFlight(t *testing.T) {
	t.Parallel()
	c := New(nil, prometheus.NewRegistry())

	started := make(chan struct{})
	var done atomic.Bool
	c.Schedule("alerts", time.Hour, func(context.Context) error {
		close(started)
		time.Sleep(30 * time.Millisecond)
		done.Store(true)
		return nil
	})

	<-started
	c.Close()
	if !done.Load() {
		t.Fatal("Close returned before the in-flight fetch finished")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
