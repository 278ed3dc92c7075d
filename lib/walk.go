package lib

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// walkFileFunc receives each matching regular file: absolute directory and
// base name.
type walkFileFunc func(dir, name string)

// walkRoot traverses root depth-first and calls fn for each regular file
// whose name matches the include patterns (no patterns = everything).
// os.ReadDir returns entries sorted by name, so the traversal order is
// stable and repeatable per root. Unreadable directories are logged and
// skipped; symlinks and non-regular entries are ignored. Returns the
// number of directories visited and files seen.
func walkRoot(root string, patterns []*regexp.Regexp, pool *PathPool, log *Logger, fn walkFileFunc) (dirs, files int) {
	return walkDir(filepath.Clean(root), patterns, pool, log, fn)
}

func walkDir(dir string, patterns []*regexp.Regexp, pool *PathPool, log *Logger, fn walkFileFunc) (dirs, files int) {
	dirs = 1
	entries, err := os.ReadDir(dir)
	if err != nil {
		if log != nil {
			log.LogError(fmt.Errorf("read dir %s: %w", dir, err))
		}
		return dirs, 0
	}
	interned := pool.Intern(dir)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			subDirs, subFiles := walkDir(filepath.Join(dir, name), patterns, pool, log, fn)
			dirs += subDirs
			files += subFiles
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if entry.Type()&fs.ModeType != 0 {
			continue
		}
		files++
		if matchesAny(name, patterns) {
			fn(interned, name)
		}
	}
	return dirs, files
}

// matchesAny reports whether name matches at least one pattern; an empty
// pattern list matches everything.
func matchesAny(name string, patterns []*regexp.Regexp) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
