package lib

import "sync/atomic"

// ScanCounts holds the live counters for the progress display. All fields
// are updated with atomics from discovery, stat, and digest workers; the
// front-end's progress loop reads them each tick. HashTotal is set once at
// the phase-1/phase-2 barrier; 0 means the hashing phase has not started.
type ScanCounts struct {
	DirsScanned   int32
	FilesSeen     int32
	FilesMatched  int32
	StatProcessed int32
	HashTotal     int32
	HashProcessed int32

	StartTimeUnixNano int64

	// WorkerProcessed, when sized to the hash pool, receives a per-worker
	// digest count so the summary can show pool balance.
	WorkerProcessed []int32
}

// ProgressRecorder records hash-worker completions: it bumps HashProcessed,
// the per-worker counter when in range, and pokes the utilization tracker.
// Safe for concurrent use; a nil recorder is a no-op.
type ProgressRecorder struct {
	counts      *ScanCounts
	utilization *WorkerUtilization
}

// NewProgressRecorder returns a recorder updating counts and utilization on
// each RecordCompletion. Both arguments must be non-nil.
func NewProgressRecorder(counts *ScanCounts, utilization *WorkerUtilization) *ProgressRecorder {
	return &ProgressRecorder{counts: counts, utilization: utilization}
}

// RecordCompletion records that the given worker finished digesting one file.
func (r *ProgressRecorder) RecordCompletion(workerIdx int) {
	if r == nil {
		return
	}
	atomic.AddInt32(&r.counts.HashProcessed, 1)
	if workerIdx >= 0 && workerIdx < len(r.counts.WorkerProcessed) {
		atomic.AddInt32(&r.counts.WorkerProcessed[workerIdx], 1)
	}
	r.utilization.Poke(workerIdx)
}
