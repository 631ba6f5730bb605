// Package freeindex tracks the free runs of a block arena.
//
// Every free run is kept in two B-trees: one ordered by start block, used for
// ordered traversal and lookup by start, and one ordered by (span, start), used
// to answer best-fit queries in O(log n). The size tree's ordering makes the
// best-fit choice deterministic: the smallest span that satisfies the request
// wins, and among equal spans the run with the lower start block wins.
//
// An Index is not safe for concurrent use.
package freeindex

import "github.com/google/btree"

// degree is the B-tree branching factor.
const degree = 8

// Run is a contiguous range of free blocks.
type Run struct {
	Start  int // first block of the run
	Blocks int // number of blocks in the run
}

// End returns the block index one past the end of the run.
func (r Run) End() int { return r.Start + r.Blocks }

func byStart(a, b Run) bool { return a.Start < b.Start }

func bySize(a, b Run) bool {
	if a.Blocks != b.Blocks {
		return a.Blocks < b.Blocks
	}
	return a.Start < b.Start
}

// Index is an ordered set of free runs keyed by start block.
type Index struct {
	starts *btree.BTreeG[Run]
	sizes  *btree.BTreeG[Run]
}

// New returns an empty index.
func New() *Index {
	return &Index{
		starts: btree.NewG(degree, byStart),
		sizes:  btree.NewG(degree, bySize),
	}
}

// Insert records a free run. If a run with the same start is already present it
// is replaced and returned with ok = true.
func (ix *Index) Insert(start, blocks int) (old Run, ok bool) {
	r := Run{Start: start, Blocks: blocks}
	old, ok = ix.starts.ReplaceOrInsert(r)
	if ok {
		ix.sizes.Delete(old)
	}
	ix.sizes.ReplaceOrInsert(r)
	return old, ok
}

// Remove deletes the run starting at start.
func (ix *Index) Remove(start int) (Run, bool) {
	r, ok := ix.starts.Delete(Run{Start: start})
	if !ok {
		return Run{}, false
	}
	ix.sizes.Delete(r)
	return r, true
}

// Get returns the run starting at start.
func (ix *Index) Get(start int) (Run, bool) {
	return ix.starts.Get(Run{Start: start})
}

// BestFit returns the smallest run spanning at least blocks blocks, preferring
// the lowest start among runs of equal span.
func (ix *Index) BestFit(blocks int) (Run, bool) {
	var (
		found Run
		ok    bool
	)
	ix.sizes.AscendGreaterOrEqual(Run{Blocks: blocks, Start: -1}, func(r Run) bool {
		found, ok = r, true
		return false
	})
	return found, ok
}

// Ascend calls fn for every run in ascending start order until fn returns false.
func (ix *Index) Ascend(fn func(Run) bool) {
	ix.starts.Ascend(fn)
}

// Last returns the run with the highest start block.
func (ix *Index) Last() (Run, bool) {
	return ix.starts.Max()
}

// Runs returns every run in ascending start order.
func (ix *Index) Runs() []Run {
	out := make([]Run, 0, ix.starts.Len())
	ix.starts.Ascend(func(r Run) bool {
		out = append(out, r)
		return true
	})
	return out
}

// FreeBlocks returns the total number of blocks held by all runs.
func (ix *Index) FreeBlocks() int {
	var n int
	ix.starts.Ascend(func(r Run) bool {
		n += r.Blocks
		return true
	})
	return n
}

// Len returns the number of runs.
func (ix *Index) Len() int { return ix.starts.Len() }

// Clear removes every run.
func (ix *Index) Clear() {
	ix.starts.Clear(false)
	ix.sizes.Clear(false)
}
