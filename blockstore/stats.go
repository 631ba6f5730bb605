package blockstore

import "github.com/cockroachdb/errors"

// Stats holds cumulative operation counters.
type Stats struct {
	CreateCalls      int // Create() calls
	GetCalls         int // Get() calls
	RemoveCalls      int // Remove() calls
	Rejected         int // Get/Remove calls refused (stale, foreign, freed or borrowed key)
	Grows            int // backing store extensions
	GrownBlocks      int // blocks added by extensions
	Splits           int // free runs split by Create
	CoalesceForward  int // merges with the following free run
	CoalesceBackward int // merges with the preceding free run
	Clears           int // Clear() calls
	Drops            int // elements destroyed by the storage
}

// Stats returns a copy of the operation counters.
func (s *Storage[T]) Stats() Stats { return s.stats }

// Usage is a point-in-time summary of the backing store.
type Usage struct {
	BlockSize       int
	Generation      uint64
	Blocks          int // blocks in the backing store
	AllocatedBlocks int // blocks held by allocated runs
	FreeBlocks      int // blocks held by free runs
	ActiveRuns      int // allocated runs
	BorrowedRuns    int // allocated runs with a live view
	FreeRuns        int // free runs
	LiveElements    int // initialised elements across all runs
	Capacity        int // element slots across all blocks
}

// Usage summarises the current state of the backing store.
func (s *Storage[T]) Usage() Usage {
	u := Usage{
		BlockSize:  s.blockSize,
		Generation: s.generation,
		Blocks:     len(s.tags),
		ActiveRuns: len(s.active),
		FreeRuns:   s.free.Len(),
		FreeBlocks: s.free.FreeBlocks(),
		Capacity:   len(s.data),
	}
	for start, blocks := range s.active {
		t := s.tags[start]
		u.AllocatedBlocks += blocks
		u.LiveElements += t.Count()
		if t.borrowed {
			u.BorrowedRuns++
		}
	}
	return u
}

// RunInfo describes one run of the backing store.
type RunInfo struct {
	Start    int
	Blocks   int
	Free     bool
	Len      int  // live elements; allocated runs only
	Borrowed bool // a live view holds the run; allocated runs only
}

// Runs returns every run, allocated and free, in block order.
func (s *Storage[T]) Runs() []RunInfo {
	var out []RunInfo
	s.walk(func(r RunInfo) {
		out = append(out, r)
	})
	return out
}

// FreeRuns returns the free runs in block order.
func (s *Storage[T]) FreeRuns() []RunInfo {
	out := make([]RunInfo, 0, s.free.Len())
	for _, r := range s.free.Runs() {
		out = append(out, RunInfo{Start: r.Start, Blocks: r.Blocks, Free: true})
	}
	return out
}

// walk visits every run in block order. It panics with ErrCorrupt if the tags
// do not partition the store into runs.
func (s *Storage[T]) walk(fn func(RunInfo)) {
	for i := 0; i < len(s.tags); {
		t := s.tags[i]
		var r RunInfo
		switch t.kind {
		case KindOwnedStart:
			r = RunInfo{Start: i, Blocks: s.active[i], Len: t.n, Borrowed: t.borrowed}
		case KindEmptyStart:
			r = RunInfo{Start: i, Blocks: t.n, Free: true}
		default:
			panic(errors.Wrapf(ErrCorrupt, "block %d: expected a run start, found %s", i, t))
		}
		if r.Blocks <= 0 {
			panic(errors.Wrapf(ErrCorrupt, "block %d: run of %d blocks", i, r.Blocks))
		}
		fn(r)
		i += r.Blocks
	}
}
