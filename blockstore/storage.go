package blockstore

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/blockkit/freeindex"
	"github.com/joshuapare/blockkit/internal/bounds"
	"github.com/joshuapare/blockkit/internal/logger"
)

// Storage is a typed arena that hands out contiguous runs of T carved from one
// growable buffer partitioned into fixed-size blocks.
//
// Free space is tracked per block with tags and indexed by freeindex, which
// answers best-fit queries. Freed runs are merged with free neighbours so that
// no two free runs are ever adjacent.
//
// A Storage is not safe for concurrent use.
type Storage[T any] struct {
	blockSize  int
	generation uint64
	owner      uint64
	closed     bool

	tags []Tag // one per block
	data []T   // blockSize slots per block; slots past a run's count hold the zero value

	free   *freeindex.Index
	active map[int]int // run start -> blocks

	drop   func(T)
	log    *slog.Logger
	onGrow func(int)

	stats Stats
}

// New returns a storage with the given block size and default configuration.
// It panics if blockSize <= 0.
func New[T any](blockSize int) *Storage[T] {
	if blockSize <= 0 {
		panic(errors.Wrapf(ErrBlockSize, "block size %d", blockSize))
	}
	cfg := DefaultConfig[T]()
	cfg.BlockSize = blockSize
	s, err := NewWithConfig(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// NewWithConfig returns a storage built from cfg.
func NewWithConfig[T any](cfg Config[T]) (*Storage[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.L
	}

	return &Storage[T]{
		blockSize: cfg.BlockSize,
		owner:     storageIDs.Add(1),
		tags:      make([]Tag, 0, cfg.InitialBlocks),
		data:      make([]T, 0, cfg.InitialBlocks*cfg.BlockSize),
		free:      freeindex.New(),
		active:    make(map[int]int),
		drop:      cfg.Drop,
		log:       cfg.Logger,
		onGrow:    cfg.OnGrow,
	}, nil
}

// BlockSize returns the number of elements per block.
func (s *Storage[T]) BlockSize() int { return s.blockSize }

// Generation returns the current generation. Keys minted in earlier
// generations are stale.
func (s *Storage[T]) Generation() uint64 { return s.generation }

// NumBlocks returns the number of blocks in the backing store.
func (s *Storage[T]) NumBlocks() int { return len(s.tags) }

// Len returns the number of allocated runs.
func (s *Storage[T]) Len() int { return len(s.active) }

// Closed reports whether Close has been called.
func (s *Storage[T]) Closed() bool { return s.closed }

// Tag returns the tag of block i. It panics if i is out of range.
func (s *Storage[T]) Tag(i int) Tag {
	if i < 0 || i >= len(s.tags) {
		panic(errors.Wrapf(ErrOutOfRange, "block %d of %d", i, len(s.tags)))
	}
	return s.tags[i]
}

// Create allocates a run able to hold at least size elements and returns its key.
//
// The run is taken from the free run with the smallest sufficient span, ties
// going to the lower start block. When no free run fits, the backing store is
// extended: a free run at the tail is grown in place, otherwise a new run is
// appended.
//
// Create panics if size <= 0, if the request overflows int, or if the storage
// is closed.
func (s *Storage[T]) Create(size int) Key {
	if s.closed {
		panic(errors.Wrapf(ErrClosed, "create(%d)", size))
	}
	if size <= 0 {
		panic(errors.Wrapf(ErrZeroSize, "create(%d)", size))
	}
	s.stats.CreateCalls++

	required := bounds.CeilDiv(size, s.blockSize)

	run, ok := s.free.BestFit(required)
	if !ok {
		run = s.extend(required)
	}

	if _, ok := s.free.Remove(run.Start); !ok {
		panic(errors.Wrapf(ErrCorrupt, "free run %d missing from index", run.Start))
	}

	// Split: the tail of an oversized run stays free.
	if run.Blocks > required {
		s.stats.Splits++
		s.markFree(run.Start+required, run.Blocks-required)
	}

	s.tags[run.Start] = OwnedStartTag(0)
	for i := run.Start + 1; i < run.Start+required; i++ {
		s.tags[i] = OwnedTag(run.Start)
	}
	s.active[run.Start] = required

	return Key{
		start:      run.Start,
		blocks:     required,
		generation: s.generation,
		owner:      s.owner,
	}
}

// extend grows the backing store so that a free run of exactly blocks blocks
// exists, and returns it.
func (s *Storage[T]) extend(blocks int) freeindex.Run {
	n := len(s.tags)
	if n > 0 && s.tags[n-1].IsFree() {
		start := n - 1
		if s.tags[start].IsEmpty() {
			start = s.tags[start].Parent()
		}
		span := s.tags[start].Span()
		s.grow(blocks - span)
		s.markFree(start, blocks)
		return freeindex.Run{Start: start, Blocks: blocks}
	}

	s.grow(blocks)
	s.markFree(n, blocks)
	return freeindex.Run{Start: n, Blocks: blocks}
}

// grow appends blocks blocks worth of tags and zeroed element slots. The new
// tags are written by the caller.
func (s *Storage[T]) grow(blocks int) {
	total, ok := bounds.AddOverflowSafe(len(s.tags), blocks)
	if !ok {
		panic(errors.Wrapf(ErrTooLarge, "grow by %d blocks", blocks))
	}
	_, hi, ok := bounds.Span(0, total, s.blockSize)
	if !ok {
		panic(errors.Wrapf(ErrTooLarge, "grow to %d blocks", total))
	}

	s.tags = growZeroed(s.tags, total)
	s.data = growZeroed(s.data, hi)

	s.stats.Grows++
	s.stats.GrownBlocks += blocks

	s.log.Debug("blockstore: grow",
		"blocks", blocks,
		"total_blocks", total,
		"elements", hi,
	)
	if s.onGrow != nil {
		s.onGrow(blocks)
	}
}

// growZeroed extends v to length n with zero values.
func growZeroed[E any](v []E, n int) []E {
	old := len(v)
	if n <= cap(v) {
		v = v[:n]
		clear(v[old:])
		return v
	}
	nv := make([]E, n, max(n, 2*cap(v)))
	copy(nv, v)
	return nv
}

// markFree writes the tags of a free run and indexes it.
func (s *Storage[T]) markFree(start, blocks int) {
	s.tags[start] = EmptyStartTag(blocks)
	for i := start + 1; i < start+blocks; i++ {
		s.tags[i] = EmptyTag(start)
	}
	s.free.Insert(start, blocks)
}

// owns reports whether k was minted by this storage in the current generation.
func (s *Storage[T]) owns(k Key) bool {
	return !s.closed && k.blocks > 0 && k.owner == s.owner && k.generation == s.generation
}

// lookup returns the start tag of the run named by k, or nil if k does not name
// a live run.
func (s *Storage[T]) lookup(k Key) *Tag {
	if !s.owns(k) || k.start < 0 || k.start >= len(s.tags) {
		return nil
	}
	t := &s.tags[k.start]
	if !t.IsOwnedStart() || s.active[k.start] != k.blocks {
		return nil
	}
	return t
}

// Get exchanges k for a view of its run.
//
// Get returns false if k is stale (minted before a Clear), belongs to another
// storage, no longer names an allocated run, or if a view of the run is still
// live. Call ReturnKey on the view to release the run again.
func (s *Storage[T]) Get(k Key) (*Block[T], bool) {
	s.stats.GetCalls++
	t := s.lookup(k)
	if t == nil || t.borrowed {
		s.stats.Rejected++
		return nil, false
	}
	t.borrowed = true
	return &Block[T]{s: s, key: k}, true
}

// Remove frees the run named by k, destroying its elements and merging it with
// adjacent free runs.
//
// Remove is a no-op returning false if k is stale, belongs to another storage,
// does not name an allocated run, or if a view of the run is still live.
func (s *Storage[T]) Remove(k Key) bool {
	s.stats.RemoveCalls++
	t := s.lookup(k)
	if t == nil || t.borrowed {
		s.stats.Rejected++
		return false
	}

	s.dropRun(k.start)
	delete(s.active, k.start)

	start, end := k.start, k.start+k.blocks

	// Absorb the following free run.
	if end < len(s.tags) && s.tags[end].IsEmptyStart() {
		span := s.tags[end].Span()
		s.removeFree(end)
		end += span
		s.stats.CoalesceForward++
	}

	// Absorb the preceding free run.
	if start > 0 {
		prev := s.tags[start-1]
		switch {
		case prev.IsEmptyStart():
			start--
		case prev.IsEmpty():
			start = prev.Parent()
		}
		if start != k.start {
			s.removeFree(start)
			s.stats.CoalesceBackward++
		}
	}

	s.markFree(start, end-start)
	return true
}

func (s *Storage[T]) removeFree(start int) {
	if _, ok := s.free.Remove(start); !ok {
		panic(errors.Wrapf(ErrCorrupt, "free run %d missing from index", start))
	}
}

// Clear frees every run, destroying all live elements, and invalidates every
// outstanding key and view. The backing store is reset to zero blocks.
func (s *Storage[T]) Clear() {
	if s.closed {
		return
	}
	s.generation++
	dropped := s.dropAll()

	s.tags = s.tags[:0]
	s.data = s.data[:0]
	clear(s.active)
	s.free.Clear()
	s.stats.Clears++

	s.log.Debug("blockstore: clear",
		"generation", s.generation,
		"dropped", dropped,
	)
}

// Close destroys every live element and releases the backing store. After
// Close, Create panics, Get fails, and Remove and Clear do nothing. Close is
// idempotent.
func (s *Storage[T]) Close() {
	if s.closed {
		return
	}
	dropped := s.dropAll()
	s.generation++
	s.closed = true

	s.tags = nil
	s.data = nil
	s.active = nil
	s.free.Clear()

	s.log.Debug("blockstore: close", "dropped", dropped)
}

// dropAll destroys the live elements of every allocated run in block order.
func (s *Storage[T]) dropAll() int {
	var n int
	for i := 0; i < len(s.tags); {
		t := s.tags[i]
		switch t.kind {
		case KindOwnedStart:
			blocks := s.active[i]
			if blocks <= 0 {
				panic(errors.Wrapf(ErrCorrupt, "block %d: allocated run not in active set", i))
			}
			n += t.n
			s.dropRun(i)
			i += blocks
		case KindEmptyStart:
			i += t.n
		default:
			panic(errors.Wrapf(ErrCorrupt, "block %d: expected a run start, found %s", i, t))
		}
	}
	return n
}

// dropRun destroys every element of the run starting at start.
func (s *Storage[T]) dropRun(start int) {
	t := &s.tags[start]
	lo := start * s.blockSize
	s.dropRange(lo, lo+t.n)
	t.setCount(0)
}

// dropRange zeroes data[lo:hi] and passes each element to the drop hook.
func (s *Storage[T]) dropRange(lo, hi int) {
	var zero T
	for i := lo; i < hi; i++ {
		v := s.data[i]
		s.data[i] = zero
		s.stats.Drops++
		if s.drop != nil {
			s.drop(v)
		}
	}
}
