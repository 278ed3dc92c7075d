package lib

import (
	"testing"
	"time"
)

func recordWith(name string, size int64, digest string, rootIndex, seq int) *FileRecord {
	return &FileRecord{
		Path:      "/r/" + name,
		Dir:       "/r",
		Name:      name,
		Size:      size,
		ModTime:   time.Unix(1000, 0),
		Digest:    digest,
		RootIndex: rootIndex,
		Seq:       seq,
	}
}

func TestKeyFor_nameModeIgnoresPathAndSize(t *testing.T) {
	a := recordWith("x.txt", 5, "", 0, 0)
	b := recordWith("x.txt", 99, "", 1, 3)
	b.Path = "/elsewhere/x.txt"
	if keyFor(CompareName, a) != keyFor(CompareName, b) {
		t.Error("name keys should match regardless of path and size")
	}
}

func TestKeyFor_nameSizeSplitsOnSize(t *testing.T) {
	a := recordWith("x.txt", 5, "", 0, 0)
	b := recordWith("x.txt", 6, "", 0, 1)
	if keyFor(CompareNameSize, a) == keyFor(CompareNameSize, b) {
		t.Error("namesize keys must differ when sizes differ")
	}
	c := recordWith("x.txt", 5, "", 1, 0)
	if keyFor(CompareNameSize, a) != keyFor(CompareNameSize, c) {
		t.Error("namesize keys should match on same name and size")
	}
}

func TestKeyFor_digestModeUsesDigestOnly(t *testing.T) {
	a := recordWith("x.txt", 5, "abc123", 0, 0)
	b := recordWith("totally-different.bin", 5, "abc123", 1, 7)
	if keyFor(CompareDigest, a) != keyFor(CompareDigest, b) {
		t.Error("digest keys should match on same digest regardless of name")
	}
}

func TestUniqueKeyFor_distinctPerRecord(t *testing.T) {
	a := recordWith("x.txt", 5, "", 0, 0)
	b := recordWith("y.txt", 5, "", 0, 1)
	if uniqueKeyFor(a) == uniqueKeyFor(b) {
		t.Error("digestless unique keys must not collide")
	}
}

func TestGrouping_preservesFirstSeenKeyOrder(t *testing.T) {
	g := newGrouping()
	first := recordWith("b.txt", 1, "", 0, 0)
	second := recordWith("a.txt", 1, "", 0, 1)
	third := recordWith("b.txt", 1, "", 0, 2)
	g.add(keyFor(CompareName, first), first)
	g.add(keyFor(CompareName, second), second)
	g.add(keyFor(CompareName, third), third)
	p := g.finalize(nil)
	if len(p.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(p.Groups))
	}
	if p.Groups[0].Key.Name != "b.txt" {
		t.Errorf("first group key = %q, want b.txt (first seen)", p.Groups[0].Key.Name)
	}
	if len(p.Groups[0].Members) != 2 {
		t.Errorf("b.txt group has %d members, want 2", len(p.Groups[0].Members))
	}
}

func TestFinalize_membersOrderedByRootThenSeq(t *testing.T) {
	g := newGrouping()
	late := recordWith("x", 1, "d", 1, 0)
	early := recordWith("x", 1, "d", 0, 2)
	earliest := recordWith("x", 1, "d", 0, 1)
	key := keyFor(CompareDigest, late)
	// Inserted out of discovery order on purpose.
	g.add(key, late)
	g.add(key, early)
	g.add(key, earliest)
	p := g.finalize(nil)
	members := p.Groups[0].Members
	if members[0] != earliest || members[1] != early || members[2] != late {
		t.Errorf("member order = %v, want (root0,seq1), (root0,seq2), (root1,seq0)",
			[]*FileRecord{members[0], members[1], members[2]})
	}
}

func TestPartition_duplicatesAndUniques(t *testing.T) {
	g := newGrouping()
	a := recordWith("a", 1, "", 0, 0)
	b := recordWith("a", 1, "", 0, 1)
	c := recordWith("c", 1, "", 0, 2)
	g.add(keyFor(CompareName, a), a)
	g.add(keyFor(CompareName, b), b)
	g.add(keyFor(CompareName, c), c)
	skippedRec := recordWith("s", 1, "", 0, 3)
	skippedRec.skip(SkipStat, nil)
	p := g.finalize([]*FileRecord{skippedRec})
	if got := len(p.Duplicates()); got != 1 {
		t.Errorf("duplicates = %d, want 1", got)
	}
	if got := len(p.Uniques()); got != 1 {
		t.Errorf("uniques = %d, want 1", got)
	}
	if len(p.Skipped) != 1 || p.Skipped[0].SkipReason != SkipStat {
		t.Errorf("skipped = %v", p.Skipped)
	}
}

func TestCompareKeyString(t *testing.T) {
	nameKey := CompareKey{Mode: CompareName, Name: "x.txt"}
	if nameKey.String() != "x.txt" {
		t.Errorf("name key string = %q", nameKey.String())
	}
	sizeKey := CompareKey{Mode: CompareNameSize, Name: "x.txt", Size: 42}
	if sizeKey.String() != "x.txt|42" {
		t.Errorf("namesize key string = %q", sizeKey.String())
	}
	digestKey := CompareKey{Mode: CompareDigest, Digest: "beef"}
	if digestKey.String() != "beef" {
		t.Errorf("digest key string = %q", digestKey.String())
	}
}
