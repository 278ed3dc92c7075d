package lib

import (
	"fmt"
	"sort"
)

// CompareKey is the grouping key for one record under the active compare
// mode. Exactly one mode is active per scan, so keys never cross mode
// boundaries. For digest-mode records finalized unique without a digest
// (their size class or prescreen class was a singleton), Name carries the
// path and Digest stays empty; such keys are distinct by construction.
type CompareKey struct {
	Mode   CompareMode
	Name   string
	Size   int64
	Digest string
}

// String renders the key the way the export formats spell it.
func (k CompareKey) String() string {
	switch k.Mode {
	case CompareName:
		return k.Name
	case CompareNameSize:
		return fmt.Sprintf("%s|%d", k.Name, k.Size)
	default:
		if k.Digest != "" {
			return k.Digest
		}
		return fmt.Sprintf("size:%d:%s", k.Size, k.Name)
	}
}

// keyFor maps a finalized record to its comparison key. Digest-mode records
// must have a digest by the time they are keyed.
func keyFor(mode CompareMode, rec *FileRecord) CompareKey {
	switch mode {
	case CompareName:
		return CompareKey{Mode: CompareName, Name: rec.Name}
	case CompareNameSize:
		return CompareKey{Mode: CompareNameSize, Name: rec.Name, Size: rec.Size}
	default:
		return CompareKey{Mode: CompareDigest, Digest: rec.Digest}
	}
}

// uniqueKeyFor keys a digest-mode record that was proven unique without a
// digest. Path makes the key distinct from every other record's key.
func uniqueKeyFor(rec *FileRecord) CompareKey {
	return CompareKey{Mode: CompareDigest, Name: rec.Path, Size: rec.Size}
}

// Group is one equality class: every member shares the identical key.
// A single member means unique, more than one means duplicates.
type Group struct {
	Key     CompareKey
	Members []*FileRecord
}

// grouping accumulates groups preserving first-seen key order. All inserts
// happen on one goroutine after the phase barrier (workers only fill in
// record fields), so no lock is needed; determinism comes from the insert
// order, which follows the records' (RootIndex, Seq) discovery order.
type grouping struct {
	order  []CompareKey
	groups map[CompareKey][]*FileRecord
}

func newGrouping() *grouping {
	return &grouping{groups: make(map[CompareKey][]*FileRecord)}
}

func (g *grouping) add(key CompareKey, rec *FileRecord) {
	if _, seen := g.groups[key]; !seen {
		g.order = append(g.order, key)
	}
	g.groups[key] = append(g.groups[key], rec)
}

// finalize builds the partition. Members within each group are ordered by
// (RootIndex, Seq); with inserts already performed in discovery order the
// sort is a no-op, but the invariant is pinned here rather than assumed.
func (g *grouping) finalize(skipped []*FileRecord) *Partition {
	groups := make([]*Group, 0, len(g.order))
	for _, key := range g.order {
		members := g.groups[key]
		sort.SliceStable(members, func(i, j int) bool { return members[i].before(members[j]) })
		groups = append(groups, &Group{Key: key, Members: members})
	}
	return &Partition{Groups: groups, Skipped: skipped}
}

// Partition is the complete result of one scan: every discovered file is in
// exactly one group or in the skipped list.
type Partition struct {
	Groups  []*Group
	Skipped []*FileRecord
}

// Duplicates returns the groups with more than one member.
func (p *Partition) Duplicates() []*Group {
	var out []*Group
	for _, group := range p.Groups {
		if len(group.Members) > 1 {
			out = append(out, group)
		}
	}
	return out
}

// Uniques returns the single-member groups.
func (p *Partition) Uniques() []*Group {
	var out []*Group
	for _, group := range p.Groups {
		if len(group.Members) == 1 {
			out = append(out, group)
		}
	}
	return out
}
