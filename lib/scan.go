package lib

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Scan runs one complete duplicate scan and always terminates with a full
// partition plus an explicit skipped list. The only error it can return is
// a configuration or setup problem surfaced before any file work starts;
// per-file failures degrade individual records and never abort the scan.
//
// counts and util may be nil when no progress display is attached.
func Scan(cfg *ScanConfig, log *Logger, counts *ScanCounts, util *WorkerUtilization) (*Partition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if counts == nil {
		counts = &ScanCounts{}
	}

	discover, err := selectDiscovery(cfg, log)
	if err != nil {
		return nil, err
	}

	var cache *DigestCache
	if cfg.CompareMode == CompareDigest && cfg.CachePath != "" {
		cache, err = OpenDigestCache(cfg.CachePath)
		if err != nil {
			if log != nil {
				log.LogError(fmt.Errorf("digest cache disabled: %w", err))
			}
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Phase 1: discover and stat every candidate across all roots. Roots
	// are processed in list order and each root's traversal order is
	// stable, so (RootIndex, Seq) pins the discovery order for good.
	records := discoverAll(cfg, discover, counts)
	statRecords(records, cfg.statThreads(), log, counts, util)

	var skipped []*FileRecord
	live := records[:0:0]
	for _, rec := range records {
		if rec.skipped() {
			skipped = append(skipped, rec)
		} else {
			live = append(live, rec)
		}
	}

	groups := newGrouping()
	if cfg.CompareMode != CompareDigest {
		for _, rec := range live {
			groups.add(keyFor(cfg.CompareMode, rec), rec)
		}
		return groups.finalize(skipped), nil
	}

	// Phase 2 (digest mode): only records sharing their size with at least
	// one other can ever collide, so size singletons are finalized unique
	// with no digest work at all. The optional prescreen refines the
	// surviving size classes by first-block xxhash; a prescreen singleton
	// is provably content-unique, so the final partition stays identical
	// to what unconditional hashing would produce.
	sizeCount := make(map[int64]int)
	for _, rec := range live {
		sizeCount[rec.Size]++
	}
	var candidates []*FileRecord
	for _, rec := range live {
		if sizeCount[rec.Size] > 1 {
			candidates = append(candidates, rec)
		}
	}

	hashWorkers := cfg.hashThreads()
	preUnique := prescreenCandidates(cfg, candidates, hashWorkers)

	var toDigest []*FileRecord
	for _, rec := range candidates {
		if !preUnique[rec] {
			toDigest = append(toDigest, rec)
		}
	}

	dc := newDigestComputer(cfg, cache, log)
	digestRecords(dc, toDigest, hashWorkers, counts, util)

	// Merge at the barrier: workers only filled in record fields, so one
	// goroutine builds the grouping in discovery order.
	for _, rec := range live {
		switch {
		case sizeCount[rec.Size] == 1 || preUnique[rec]:
			groups.add(uniqueKeyFor(rec), rec)
		case rec.skipped():
			skipped = append(skipped, rec)
		default:
			groups.add(keyFor(CompareDigest, rec), rec)
		}
	}
	return groups.finalize(skipped), nil
}

// discoverFunc lists one root's matching files as fresh records.
type discoverFunc func(rootIndex int, root string, counts *ScanCounts) []*FileRecord

// selectDiscovery picks the discovery implementation once, at configuration
// time. When find delegation is requested but the verified GNU find is not
// there, discovery falls back to the walker; the glob-shaped patterns must
// then compile as walker regexes, which is a configuration error if they
// don't (the original behavior: tell the user to fix the pattern or
// install GNU find).
func selectDiscovery(cfg *ScanConfig, log *Logger) (discoverFunc, error) {
	pool := NewPathPool()
	if cfg.DiscoveryMode == DiscoverFindTool {
		tool := newFindTool()
		if tool.available() {
			return func(rootIndex int, root string, counts *ScanCounts) []*FileRecord {
				return discoverWithFind(tool, cfg, rootIndex, root, pool, log, counts)
			}, nil
		}
		if log != nil {
			log.Log("GNU find not available, falling back to walk discovery")
		}
		patterns, err := compileNamePatterns(cfg.IncludePatterns)
		if err != nil {
			return nil, &ConfigError{
				Field:  "include",
				Reason: "patterns are not valid walk-mode regexes and GNU find is not available; change the pattern (e.g. '*.jpg' -> '.jpg') or install GNU find",
			}
		}
		cfg.namePatterns = patterns
	}
	return func(rootIndex int, root string, counts *ScanCounts) []*FileRecord {
		return discoverWithWalk(cfg, rootIndex, root, pool, log, counts)
	}, nil
}

func discoverAll(cfg *ScanConfig, discover discoverFunc, counts *ScanCounts) []*FileRecord {
	var records []*FileRecord
	for rootIndex, root := range cfg.Roots {
		rootRecords := discover(rootIndex, root, counts)
		atomic.AddInt32(&counts.FilesMatched, int32(len(rootRecords)))
		records = append(records, rootRecords...)
	}
	return records
}

func discoverWithWalk(cfg *ScanConfig, rootIndex int, root string, pool *PathPool, log *Logger, counts *ScanCounts) []*FileRecord {
	var records []*FileRecord
	seq := 0
	dirs, files := walkRoot(root, cfg.namePatterns, pool, log, func(dir, name string) {
		records = append(records, newFileRecord(dir, name, rootIndex, seq))
		seq++
	})
	atomic.AddInt32(&counts.DirsScanned, int32(dirs))
	atomic.AddInt32(&counts.FilesSeen, int32(files))
	return records
}

func discoverWithFind(tool *findTool, cfg *ScanConfig, rootIndex int, root string, pool *PathPool, log *Logger, counts *ScanCounts) []*FileRecord {
	paths, err := tool.listFiles(root, cfg.IncludePatterns, cfg.IRegex)
	if err != nil {
		if log != nil {
			log.LogError(fmt.Errorf("find discovery on %s: %w", root, err))
			log.Log("falling back to walk discovery for " + root)
		}
		// Per-root fallback: find resolved and verified but failed to run.
		// Glob patterns cannot be reinterpreted as regexes mid-scan, so the
		// walker runs unfiltered only when there are no patterns.
		if len(cfg.IncludePatterns) == 0 {
			return discoverWithWalk(cfg, rootIndex, root, pool, log, counts)
		}
		return nil
	}
	atomic.AddInt32(&counts.FilesSeen, int32(len(paths)))
	records := make([]*FileRecord, 0, len(paths))
	for seq, path := range paths {
		dir, name := filepath.Split(path)
		dir = pool.Intern(filepath.Clean(dir))
		records = append(records, newFileRecord(dir, name, rootIndex, seq))
	}
	return records
}

// statRecords runs phase 1's metadata collection over a fixed worker pool
// so stat activity is attributable to the shared utilization tracker, same
// as the digest pool. Workers write only to the record they own (slice
// positions are fixed before the pool starts), so no synchronization is
// needed on the records.
func statRecords(records []*FileRecord, workers int, log *Logger, counts *ScanCounts, util *WorkerUtilization) {
	if workers <= 1 {
		for _, rec := range records {
			collectMetadata(rec, log)
			atomic.AddInt32(&counts.StatProcessed, 1)
			util.Poke(0)
		}
		return
	}
	workCh := make(chan *FileRecord, workers*2)
	var wg sync.WaitGroup
	for workerIdx := 0; workerIdx < workers; workerIdx++ {
		idx := workerIdx
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range workCh {
				collectMetadata(rec, log)
				atomic.AddInt32(&counts.StatProcessed, 1)
				util.Poke(idx)
			}
		}()
	}
	for _, rec := range records {
		workCh <- rec
	}
	close(workCh)
	wg.Wait()
}

// prescreenCandidates computes first-block sums over the hash pool and
// returns the set of records whose refined class is a singleton. A failed
// prescreen read taints its whole size class: the failed record has no sum,
// so none of its classmates can be proven content-unique without the full
// digest, and all of them stay candidates.
func prescreenCandidates(cfg *ScanConfig, candidates []*FileRecord, workers int) map[*FileRecord]bool {
	preUnique := make(map[*FileRecord]bool)
	if !cfg.Prescreen || len(candidates) == 0 {
		return preUnique
	}
	blockSize := cfg.effectiveBlockSize()
	maxRead := cfg.maxReadBytes()
	sums := make([]uint64, len(candidates))
	valid := make([]bool, len(candidates))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, rec := range candidates {
		i, rec := i, rec
		g.Go(func() error {
			sum, err := prescreenSum(rec.Path, blockSize, maxRead)
			if err == nil {
				sums[i] = sum
				valid[i] = true
			}
			return nil
		})
	}
	g.Wait()
	classCount := make(map[preClass]int)
	taintedSize := make(map[int64]bool)
	for i, rec := range candidates {
		if valid[i] {
			classCount[preClass{size: rec.Size, sum: sums[i]}]++
		} else {
			taintedSize[rec.Size] = true
		}
	}
	for i, rec := range candidates {
		if valid[i] && !taintedSize[rec.Size] && classCount[preClass{size: rec.Size, sum: sums[i]}] == 1 {
			preUnique[rec] = true
		}
	}
	return preUnique
}

// digestRecords runs phase 2's content hashing over a fixed worker pool so
// per-worker progress and utilization stay attributable. Each record is
// owned by exactly one worker for the duration of its digest.
func digestRecords(dc *digestComputer, records []*FileRecord, workers int, counts *ScanCounts, util *WorkerUtilization) {
	if len(records) == 0 {
		return
	}
	atomic.StoreInt32(&counts.HashTotal, int32(len(records)))
	atomic.CompareAndSwapInt64(&counts.StartTimeUnixNano, 0, time.Now().UnixNano())
	var recorder *ProgressRecorder
	if util != nil {
		recorder = NewProgressRecorder(counts, util)
	}
	if workers <= 1 {
		for _, rec := range records {
			dc.digestRecord(rec)
			if recorder != nil {
				recorder.RecordCompletion(0)
			} else {
				atomic.AddInt32(&counts.HashProcessed, 1)
			}
		}
		return
	}
	workCh := make(chan *FileRecord, workers*2)
	var wg sync.WaitGroup
	for workerIdx := 0; workerIdx < workers; workerIdx++ {
		idx := workerIdx
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range workCh {
				dc.digestRecord(rec)
				if recorder != nil {
					recorder.RecordCompletion(idx)
				} else {
					atomic.AddInt32(&counts.HashProcessed, 1)
				}
			}
		}()
	}
	for _, rec := range records {
		workCh <- rec
	}
	close(workCh)
	wg.Wait()
}
