package lib

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// prescreenSum hashes the first block of the file with xxhash. Records that
// share a size but not a first-block sum cannot be content-equal, so the
// prescreen splits size classes further before the expensive full digest.
// With a non-zero digest budget the prescreen reads at most that many
// bytes, so it never looks past what the digest itself would cover.
func prescreenSum(path string, blockSize int, maxRead int64) (uint64, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	limit := int64(blockSize)
	if maxRead > 0 && maxRead < limit {
		limit = maxRead
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	buf := make([]byte, limit)
	bytesRead, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	return xxhash.Sum64(buf[:bytesRead]), nil
}

// preClass is a refined size class: records agreeing on size and on the
// xxhash of their first block.
type preClass struct {
	size int64
	sum  uint64
}
