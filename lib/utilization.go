package lib

import (
	"math"
	"sync/atomic"
)

// WorkerUtilization tracks per-worker activity for the stat and digest
// pools and reports what percentage of workers were active over a sliding
// window of ticks. Workers call Poke(workerIdx) when they finish a file;
// the progress loop calls Tick() each interval. Both pools share one
// tracker sized to the larger of the two.
type WorkerUtilization struct {
	hits        []int32
	history     [][]int32
	windowTicks int
}

// NewWorkerUtilization creates a tracker for numWorkers keeping windowTicks
// snapshots (e.g. 10 ticks at 100ms gives a one-second window).
func NewWorkerUtilization(numWorkers, windowTicks int) *WorkerUtilization {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if windowTicks <= 0 {
		windowTicks = 10
	}
	return &WorkerUtilization{
		hits:        make([]int32, numWorkers),
		windowTicks: windowTicks,
	}
}

// Poke records a unit of work for the given worker. Safe from any
// goroutine; out-of-range indexes are ignored, and a nil tracker (no
// progress display attached) is a no-op.
func (u *WorkerUtilization) Poke(workerIdx int) {
	if u == nil || workerIdx < 0 || workerIdx >= len(u.hits) {
		return
	}
	atomic.AddInt32(&u.hits[workerIdx], 1)
}

// Tick snapshots the counters, appends to the window, and returns the
// percentage of workers active since the oldest snapshot, rounded up to a
// whole percent. Call from a single goroutine.
func (u *WorkerUtilization) Tick() int {
	n := len(u.hits)
	if n == 0 {
		return 0
	}
	cur := make([]int32, n)
	for i := range u.hits {
		cur[i] = atomic.LoadInt32(&u.hits[i])
	}
	u.history = append(u.history, cur)
	if len(u.history) > u.windowTicks {
		u.history = u.history[1:]
	}
	active := 0
	if len(u.history) >= 2 {
		oldest := u.history[0]
		for i := range cur {
			if cur[i] > oldest[i] {
				active++
			}
		}
	} else {
		for _, c := range cur {
			if c > 0 {
				active++
			}
		}
	}
	return int(math.Ceil(100.0 * float64(active) / float64(n)))
}

// UtilizedPercentWholeRun returns the percentage of workers that did any
// work at all, for the final summary.
func (u *WorkerUtilization) UtilizedPercentWholeRun() int {
	n := len(u.hits)
	if n == 0 {
		return 0
	}
	active := 0
	for i := range u.hits {
		if atomic.LoadInt32(&u.hits[i]) > 0 {
			active++
		}
	}
	return int(math.Ceil(100.0 * float64(active) / float64(n)))
}
