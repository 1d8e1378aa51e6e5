// timecache.go: background-refreshed timestamp cache for the hot path
//
// Adapted from the teacher's local timecache.go (agilira-iris): a single
// background goroutine refreshes an atomic nanosecond counter on a fixed
// tick, so a reader gets a wall-clock timestamp with one atomic load.
// Nothing in the package reads this cache at present: entry timestamps
// come from elapsedNanos (calibration.go), which reads the monotonic clock
// on every Log call, and calibration.go's wall-clock anchor, captured once
// at Init, comes from the external go-timecache module.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"sync"
	"sync/atomic"
	"time"
)

// timeCacheInterval is how often the background goroutine refreshes the
// cached timestamp; a cached read is stale by at most this much.
const timeCacheInterval = 500 * time.Microsecond

type timeCache struct {
	cachedNano int64 // atomic
	ticker     *time.Ticker
	stopCh     chan struct{}
	stopOnce   sync.Once
}

var globalTimeCache = newTimeCache()

func newTimeCache() *timeCache {
	tc := &timeCache{
		cachedNano: time.Now().UnixNano(),
		ticker:     time.NewTicker(timeCacheInterval),
		stopCh:     make(chan struct{}),
	}
	go tc.updateLoop()
	return tc
}

func (tc *timeCache) updateLoop() {
	for {
		select {
		case <-tc.ticker.C:
			atomic.StoreInt64(&tc.cachedNano, time.Now().UnixNano())
		case <-tc.stopCh:
			tc.ticker.Stop()
			return
		}
	}
}

func (tc *timeCache) nano() int64 {
	return atomic.LoadInt64(&tc.cachedNano)
}

// cachedTimeNano returns the most recently cached wall-clock time in
// nanoseconds since the Unix epoch, refreshed roughly every
// timeCacheInterval. Log does not call it; see the file comment.
func cachedTimeNano() int64 {
	return globalTimeCache.nano()
}

// stopTimeCache halts the background refresh goroutine. Shutdown does not
// call it, so the goroutine otherwise runs for the life of the process.
func stopTimeCache() {
	globalTimeCache.stopOnce.Do(func() { close(globalTimeCache.stopCh) })
}
