package lib

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// DigestCache persists digests in a SQLite database so repeated scans over
// unchanged trees skip the content reads entirely. An entry is only a hit
// when the file's size and mtime are unchanged and the digest was computed
// under the same parameters (mode, block size, read budget); anything else
// is a miss and the fresh digest overwrites the entry. Block size matters
// because a truncated digest stops on whole-block boundaries, so it covers
// a different byte count under a different block size.
type DigestCache struct {
	db *sql.DB
	mu sync.Mutex
}

// CacheEntry is one persisted digest with the signature and parameters it
// was computed under.
type CacheEntry struct {
	Digest    string
	Size      int64
	MtimeNs   int64
	ReadSize  int64
	Mode      string
	BlockSize int
	MaxRead   int64
}

// OpenDigestCache initializes (or reuses) the cache database at path.
func OpenDigestCache(path string) (*DigestCache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path cannot be empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	cache := &DigestCache{db: db}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return cache, nil
}

// Close releases the underlying database resources.
func (c *DigestCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DigestCache) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS digest_cache (
        path TEXT PRIMARY KEY,
        digest TEXT NOT NULL,
        size INTEGER NOT NULL,
        mtime_ns INTEGER NOT NULL,
        read_size INTEGER NOT NULL,
        mode TEXT NOT NULL,
        block_size INTEGER NOT NULL,
        max_read INTEGER NOT NULL
);
`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize cache schema: %w", err)
	}
	return nil
}

// Lookup returns the cached entry for path when its signature and digest
// parameters match exactly. Database errors are treated as misses by the
// caller; the cache is an optimization, never a source of failure.
func (c *DigestCache) Lookup(path string, size, mtimeNs int64, mode string, blockSize int, maxRead int64) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entry CacheEntry
	err := c.db.QueryRow(`
SELECT digest, size, mtime_ns, read_size, mode, block_size, max_read
FROM digest_cache WHERE path = ?
`, path).Scan(&entry.Digest, &entry.Size, &entry.MtimeNs, &entry.ReadSize, &entry.Mode, &entry.BlockSize, &entry.MaxRead)
	if err != nil {
		return CacheEntry{}, false
	}
	if entry.Size != size || entry.MtimeNs != mtimeNs || entry.Mode != mode || entry.BlockSize != blockSize || entry.MaxRead != maxRead {
		return CacheEntry{}, false
	}
	return entry, true
}

// Store upserts the entry for path.
func (c *DigestCache) Store(path string, entry CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(`
INSERT INTO digest_cache(path, digest, size, mtime_ns, read_size, mode, block_size, max_read)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
        digest=excluded.digest,
        size=excluded.size,
        mtime_ns=excluded.mtime_ns,
        read_size=excluded.read_size,
        mode=excluded.mode,
        block_size=excluded.block_size,
        max_read=excluded.max_read
`, path, entry.Digest, entry.Size, entry.MtimeNs, entry.ReadSize, entry.Mode, entry.BlockSize, entry.MaxRead)
	if err != nil {
		return fmt.Errorf("upsert cache entry %s: %w", path, err)
	}
	return nil
}
