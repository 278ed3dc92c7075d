package lib

import (
	"path/filepath"
	"time"
)

// Skip reasons attached to records that are excluded from both the
// duplicate and the unique partitions.
const (
	SkipStat     = "stat"
	SkipDigest   = "digest"
	SkipUnstable = "unstable"
)

// FileRecord is one discovered file. It is created during discovery,
// enriched by the stat and digest phases, and becomes read-only once it is
// placed into a group or the skipped list. Exactly one worker owns a record
// at any time; merging happens after the phase barrier.
type FileRecord struct {
	Path    string // absolute path
	Dir     string // absolute directory (interned)
	Name    string // base filename
	Size    int64
	ModTime time.Time

	// Digest is the hex content fingerprint; empty until the digest phase
	// computes it (or a cache hit supplies it). DigestReadSize is how many
	// bytes were actually read to produce it.
	Digest         string
	DigestReadSize int64

	// RootIndex and Seq pin the deterministic ordering of group members:
	// root-list order first, then per-root traversal order. Downstream
	// "keep the first copy" semantics depend on this being stable.
	RootIndex int
	Seq       int

	SkipReason string
	Err        error
}

func newFileRecord(dir, name string, rootIndex, seq int) *FileRecord {
	return &FileRecord{
		Path:      filepath.Join(dir, name),
		Dir:       dir,
		Name:      name,
		RootIndex: rootIndex,
		Seq:       seq,
	}
}

// skip finalizes the record as excluded from grouping.
func (rec *FileRecord) skip(reason string, err error) {
	rec.SkipReason = reason
	rec.Err = err
}

func (rec *FileRecord) skipped() bool { return rec.SkipReason != "" }

// before reports the ordering used for group members.
func (rec *FileRecord) before(other *FileRecord) bool {
	if rec.RootIndex != other.RootIndex {
		return rec.RootIndex < other.RootIndex
	}
	return rec.Seq < other.Seq
}
