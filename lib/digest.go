package lib

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Pool of read buffers for incremental digesting; reused across files so we
// don't allocate a block buffer per file.
var blockBufPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, DefaultBlockSize)
		return &buffer
	},
}

// md5File digests the file at path incrementally in blockSize chunks. A
// non-zero maxRead stops after at least maxRead bytes have been digested
// (whole blocks only), which intentionally trades accuracy for speed on
// large files. Returns the hex digest and the number of bytes read.
func md5File(path string, blockSize int, maxRead int64) (string, int64, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	buf := blockBufPool.Get().(*[]byte)
	defer blockBufPool.Put(buf)
	if cap(*buf) < blockSize {
		*buf = make([]byte, blockSize)
	}
	readBuffer := (*buf)[:blockSize]

	hasher := md5.New()
	var total int64
	for {
		bytesRead, err := file.Read(readBuffer)
		if bytesRead > 0 {
			hasher.Write(readBuffer[:bytesRead])
			total += int64(bytesRead)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", total, err
		}
		if maxRead > 0 && total >= maxRead {
			break
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), total, nil
}

// digestComputer produces content fingerprints for phase-2 candidates. One
// computer serves a whole scan; its configuration is immutable. The statSig
// hook exists so tests can drive the stability path deterministically.
type digestComputer struct {
	mode          DigestMode
	blockSize     int
	maxRead       int64
	requireStable bool
	retry         Retry
	cache         *DigestCache
	checksum      *checksumTool
	statSig       func(path string) (fileSig, error)
	log           *Logger
}

func newDigestComputer(cfg *ScanConfig, cache *DigestCache, log *Logger) *digestComputer {
	dc := &digestComputer{
		mode:          cfg.DigestMode,
		blockSize:     cfg.effectiveBlockSize(),
		maxRead:       cfg.maxReadBytes(),
		requireStable: cfg.RequireStable,
		retry:         Retry{Attempts: StabilityAttempts, Backoff: StabilityBackoff},
		cache:         cache,
		statSig:       statSig,
		log:           log,
	}
	if cfg.DigestMode == DigestChecksumTool {
		tool := newChecksumTool()
		if tool.available() {
			dc.checksum = tool
		} else {
			if log != nil {
				log.Log("md5sum not available, using native digest")
			}
			dc.mode = DigestNative
		}
	}
	return dc
}

// cacheParams identifies the digest configuration a cache entry was
// computed under; entries from a different configuration are misses. The
// block size is part of the key: a truncated digest stops on whole-block
// boundaries, so two block sizes cover different byte counts of the same
// file.
func (dc *digestComputer) cacheParams() (string, int, int64) {
	return dc.mode.String(), dc.blockSize, dc.maxRead
}

// digestRecord fills rec.Digest and rec.DigestReadSize, or finalizes the
// record as skipped. The record is exclusively owned by the calling worker.
func (dc *digestComputer) digestRecord(rec *FileRecord) {
	if dc.cache != nil {
		mode, blockSize, maxRead := dc.cacheParams()
		if entry, ok := dc.cache.Lookup(rec.Path, rec.Size, rec.ModTime.UnixNano(), mode, blockSize, maxRead); ok {
			rec.Digest = entry.Digest
			rec.DigestReadSize = entry.ReadSize
			return
		}
	}

	var digest string
	var read int64
	op := func() error {
		var pre fileSig
		var err error
		if dc.requireStable {
			pre, err = dc.statSig(rec.Path)
			if err != nil {
				return err
			}
		}
		digest, read, err = dc.digestOnce(rec)
		if err != nil {
			return err
		}
		if dc.requireStable {
			post, err := dc.statSig(rec.Path)
			if err != nil {
				return err
			}
			if post != pre {
				return ErrUnstable
			}
		}
		return nil
	}

	if err := dc.retry.Do(op); err != nil {
		if errors.Is(err, ErrUnstable) {
			rec.skip(SkipUnstable, err)
		} else {
			rec.skip(SkipDigest, err)
		}
		if dc.log != nil {
			dc.log.LogError(fmt.Errorf("digest %s: %w", rec.Path, err))
		}
		return
	}
	rec.Digest = digest
	rec.DigestReadSize = read
	if dc.cache != nil {
		mode, blockSize, maxRead := dc.cacheParams()
		entry := CacheEntry{
			Digest:    digest,
			Size:      rec.Size,
			MtimeNs:   rec.ModTime.UnixNano(),
			ReadSize:  read,
			Mode:      mode,
			BlockSize: blockSize,
			MaxRead:   maxRead,
		}
		if err := dc.cache.Store(rec.Path, entry); err != nil && dc.log != nil {
			dc.log.LogError(fmt.Errorf("cache store %s: %w", rec.Path, err))
		}
	}
}

// digestOnce performs a single digest attempt with the configured strategy.
func (dc *digestComputer) digestOnce(rec *FileRecord) (string, int64, error) {
	if dc.mode == DigestChecksumTool && dc.checksum != nil {
		digest, err := dc.checksum.digestFile(rec.Path)
		if err != nil {
			return "", 0, err
		}
		// md5sum always reads the whole file.
		return digest, rec.Size, nil
	}
	return md5File(rec.Path, dc.blockSize, dc.maxRead)
}
