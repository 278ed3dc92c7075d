package lib

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *DigestCache {
	t.Helper()
	cache, err := OpenDigestCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestDigestCache_storeThenLookup(t *testing.T) {
	cache := openTestCache(t)
	entry := CacheEntry{Digest: "5d41402abc4b2a76b9719d911017c592", Size: 5, MtimeNs: 1234, ReadSize: 5, Mode: "native", BlockSize: 4096, MaxRead: 0}
	if err := cache.Store("/data/x.txt", entry); err != nil {
		t.Fatal(err)
	}
	got, ok := cache.Lookup("/data/x.txt", 5, 1234, "native", 4096, 0)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != entry {
		t.Errorf("entry = %+v, want %+v", got, entry)
	}
}

func TestDigestCache_missOnUnknownPath(t *testing.T) {
	cache := openTestCache(t)
	if _, ok := cache.Lookup("/nowhere", 1, 1, "native", 4096, 0); ok {
		t.Error("lookup of unknown path must miss")
	}
}

func TestDigestCache_missOnChangedSignature(t *testing.T) {
	cache := openTestCache(t)
	entry := CacheEntry{Digest: "aa", Size: 10, MtimeNs: 100, ReadSize: 10, Mode: "native", BlockSize: 4096, MaxRead: 0}
	if err := cache.Store("/data/f", entry); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name      string
		size      int64
		mtimeNs   int64
		mode      string
		blockSize int
		maxRead   int64
	}{
		{"size changed", 11, 100, "native", 4096, 0},
		{"mtime changed", 10, 101, "native", 4096, 0},
		{"mode changed", 10, 100, "md5sum", 4096, 0},
		{"block size changed", 10, 100, "native", 1024, 0},
		{"max read changed", 10, 100, "native", 4096, 4096},
	}
	for _, tc := range cases {
		if _, ok := cache.Lookup("/data/f", tc.size, tc.mtimeNs, tc.mode, tc.blockSize, tc.maxRead); ok {
			t.Errorf("%s: expected miss", tc.name)
		}
	}
	if _, ok := cache.Lookup("/data/f", 10, 100, "native", 4096, 0); !ok {
		t.Error("matching signature should still hit")
	}
}

func TestDigestCache_storeOverwrites(t *testing.T) {
	cache := openTestCache(t)
	first := CacheEntry{Digest: "old", Size: 1, MtimeNs: 1, ReadSize: 1, Mode: "native", BlockSize: 4096, MaxRead: 0}
	second := CacheEntry{Digest: "new", Size: 2, MtimeNs: 2, ReadSize: 2, Mode: "native", BlockSize: 4096, MaxRead: 0}
	if err := cache.Store("/data/g", first); err != nil {
		t.Fatal(err)
	}
	if err := cache.Store("/data/g", second); err != nil {
		t.Fatal(err)
	}
	got, ok := cache.Lookup("/data/g", 2, 2, "native", 4096, 0)
	if !ok || got.Digest != "new" {
		t.Errorf("got %+v, want the overwritten entry", got)
	}
	if _, ok := cache.Lookup("/data/g", 1, 1, "native", 4096, 0); ok {
		t.Error("old signature should no longer hit")
	}
}

func TestDigestCache_reopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenDigestCache(path)
	if err != nil {
		t.Fatal(err)
	}
	entry := CacheEntry{Digest: "persisted", Size: 3, MtimeNs: 3, ReadSize: 3, Mode: "native", BlockSize: 4096, MaxRead: 0}
	if err := cache.Store("/data/h", entry); err != nil {
		t.Fatal(err)
	}
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := OpenDigestCache(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if got, ok := reopened.Lookup("/data/h", 3, 3, "native", 4096, 0); !ok || got.Digest != "persisted" {
		t.Errorf("entry did not survive reopen: %+v ok=%v", got, ok)
	}
}

func TestOpenDigestCache_emptyPath(t *testing.T) {
	if _, err := OpenDigestCache("   "); err == nil {
		t.Error("expected error for blank cache path")
	}
}

func TestDigestCache_nilSafeClose(t *testing.T) {
	var cache *DigestCache
	if err := cache.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
