package lib

import (
	"fmt"
	"os"
)

// collectMetadata performs the single stat for a record, filling size and
// mtime. A stat failure (permission, file removed mid-scan) degrades the
// record to skipped; it never fails the scan.
func collectMetadata(rec *FileRecord, log *Logger) {
	info, err := os.Stat(rec.Path)
	if err != nil {
		rec.skip(SkipStat, err)
		if log != nil {
			log.LogError(fmt.Errorf("stat %s: %w", rec.Path, err))
		}
		return
	}
	rec.Size = info.Size()
	rec.ModTime = info.ModTime()
}

// fileSig is the stability signature: a file whose size or mtime moved
// between two stats was modified in between.
type fileSig struct {
	size    int64
	mtimeNs int64
}

func statSig(path string) (fileSig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileSig{}, err
	}
	return fileSig{size: info.Size(), mtimeNs: info.ModTime().UnixNano()}, nil
}
