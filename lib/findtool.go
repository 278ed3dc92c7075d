package lib

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// findTool delegates file discovery to GNU find. The resolved binary is
// verified to actually be GNU findutils before use: Windows ships a
// System32 find.exe that is a text-search tool with incompatible
// semantics, and BSD find does not understand -iregex the same way. When
// verification fails, discovery falls back to the in-process walker.
type findTool struct {
	path string

	// lookPath and runOutput are swappable for tests.
	lookPath  func(file string) (string, error)
	runOutput func(name string, args ...string) ([]byte, error)
}

func newFindTool() *findTool {
	return &findTool{
		lookPath: exec.LookPath,
		runOutput: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
}

// available resolves and verifies the find binary. It caches the resolved
// path on success.
func (t *findTool) available() bool {
	if t.path != "" {
		return true
	}
	resolved, err := t.lookPath("find")
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" && strings.Contains(strings.ToLower(resolved), "system32") {
		return false
	}
	out, err := t.runOutput(resolved, "--version")
	if err != nil || !bytes.Contains(out, []byte("GNU findutils")) {
		return false
	}
	t.path = resolved
	return true
}

// findToolArgs builds the argument list for one root: plain -type f, an
// OR-chain of -name globs, or a single -iregex expression.
func findToolArgs(root string, patterns []string, iregex bool) []string {
	args := []string{root, "-type", "f"}
	if len(patterns) == 0 {
		return args
	}
	if iregex {
		return append(args, "-iregex", patterns[0])
	}
	for i, pattern := range patterns {
		if i > 0 {
			args = append(args, "-o")
		}
		args = append(args, "-name", pattern)
	}
	return args
}

// listFiles runs find for one root and returns the absolute paths it
// printed, one per line, in find's (stable, depth-first) order.
func (t *findTool) listFiles(root string, patterns []string, iregex bool) ([]string, error) {
	if !t.available() {
		return nil, fmt.Errorf("find tool unavailable")
	}
	out, err := t.runOutput(t.path, findToolArgs(root, patterns, iregex)...)
	if err != nil {
		return nil, fmt.Errorf("run find on %s: %w", root, err)
	}
	return parseFindOutput(out), nil
}

// parseFindOutput splits find's stdout into non-empty path lines.
func parseFindOutput(out []byte) []string {
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}
