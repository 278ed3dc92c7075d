package lib

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func collectWalk(t *testing.T, root string, patterns []*regexp.Regexp) []string {
	t.Helper()
	var paths []string
	walkRoot(root, patterns, NewPathPool(), nil, func(dir, name string) {
		paths = append(paths, filepath.Join(dir, name))
	})
	return paths
}

func TestWalkRoot_stableSortedOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "d.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	first := collectWalk(t, root, nil)
	second := collectWalk(t, root, nil)
	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "c.txt"),
		filepath.Join(root, "sub", "d.txt"),
	}
	if len(first) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(first), len(want), first)
	}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, first[i], want[i])
		}
		if first[i] != second[i] {
			t.Errorf("walk order not repeatable at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestWalkRoot_includePatterns(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"photo.jpg", "notes.txt", "clip.jpeg"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	patterns, err := compileNamePatterns([]string{".jpg"})
	if err != nil {
		t.Fatal(err)
	}
	paths := collectWalk(t, root, patterns)
	if len(paths) != 1 || filepath.Base(paths[0]) != "photo.jpg" {
		t.Errorf("pattern .jpg matched %v, want only photo.jpg", paths)
	}
}

func TestWalkRoot_patternSearchedAnywhereInName(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"report-final.txt", "report.bak", "other.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	patterns, err := compileNamePatterns([]string{"report"})
	if err != nil {
		t.Fatal(err)
	}
	paths := collectWalk(t, root, patterns)
	if len(paths) != 2 {
		t.Errorf("pattern report matched %v, want 2 files", paths)
	}
}

func TestWalkRoot_skipsSymlinks(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("f", filepath.Join(root, "link")); err != nil {
		t.Skip("symlink not supported")
	}
	paths := collectWalk(t, root, nil)
	if len(paths) != 1 || filepath.Base(paths[0]) != "f" {
		t.Errorf("expected only regular file f, got %v", paths)
	}
}

func TestWalkRoot_countsDirsAndFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "f1"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "b", "f2"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	dirs, files := walkRoot(root, nil, NewPathPool(), nil, func(dir, name string) {})
	if dirs != 3 {
		t.Errorf("dirs = %d, want 3 (root, a, a/b)", dirs)
	}
	if files != 2 {
		t.Errorf("files = %d, want 2", files)
	}
}

func TestWalkRoot_internsDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	var dirs []string
	walkRoot(root, nil, NewPathPool(), nil, func(dir, name string) {
		dirs = append(dirs, dir)
	})
	if len(dirs) != 2 {
		t.Fatalf("got %d files", len(dirs))
	}
	// Interned strings share backing storage; equality is the observable part.
	if dirs[0] != dirs[1] {
		t.Errorf("dirs differ: %q vs %q", dirs[0], dirs[1])
	}
}
