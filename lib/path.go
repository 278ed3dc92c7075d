package lib

import (
	"fmt"
	"os"
	"sync"
)

// EnsureDir returns nil if path is an existing directory; otherwise an error.
func EnsureDir(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// PathPool interns directory strings so the many records that share a
// parent directory share one string value.
type PathPool struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewPathPool returns a new path pool.
func NewPathPool() *PathPool {
	return &PathPool{seen: make(map[string]string)}
}

// Intern returns the canonical copy of dir, deduplicating storage.
func (p *PathPool) Intern(dir string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.seen[dir]; ok {
		return cached
	}
	p.seen[dir] = dir
	return dir
}
