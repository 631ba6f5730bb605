// Package blockstore provides a typed block arena: variable-length, contiguous
// runs of T carved out of one growable buffer divided into fixed-size blocks.
//
// # Overview
//
// The backing store is two parallel arrays: one Tag per block and BlockSize
// element slots per block. Each block's tag says whether it starts or
// continues an allocated run or a free run:
//
//	OwnedStart(count)    first block of an allocated run, count live elements
//	Owned(start)         continuation of the allocated run starting at start
//	EmptyStart(blocks)   first block of a free run spanning blocks blocks
//	Empty(start)         continuation of the free run starting at start
//
// Free runs are indexed by package freeindex, which answers best-fit queries in
// O(log n).
//
// # Operations
//
//   - Create(size): carve a run of ceil(size/BlockSize) blocks from the best-fitting
//     free run, splitting off any surplus, or extend the store
//   - Get(key): exchange a key for an exclusive *Block[T] view
//   - Remove(key): destroy the run's elements and merge it with free neighbours
//   - Clear(): destroy everything, reset to zero blocks, invalidate all keys
//   - Close(): destroy everything and release the store
//
// # Usage Example
//
//	s := blockstore.New[int](10)
//
//	key := s.Create(15) // two blocks, capacity 20
//
//	b, ok := s.Get(key)
//	if !ok {
//	    return errStale
//	}
//	b.Push(1)
//	b.Push(2)
//	key = b.ReturnKey()
//
//	s.Remove(key)
//
// # Keys and Views
//
// A Key names one run and carries the generation it was minted in. Clear bumps
// the generation, so keys held across a Clear are stale: Get reports false and
// Remove does nothing.
//
// At most one Block view per run is live at a time. Get marks the run as
// borrowed and refuses further Get and Remove calls for it until the view's
// ReturnKey is called. A view whose storage is cleared or closed goes dead.
//
// A key that is dropped without being passed to Remove, or a view whose
// ReturnKey is never called, keeps its run allocated until the storage is
// cleared or closed. The storage does not reclaim such runs on its own;
// Runs and Usage expose them.
//
// # Element Lifecycle
//
// Element slots outside a run's live prefix hold the zero value. When the
// storage destroys an element (Remove, Clear, Close, Block.Truncate) it zeroes
// the slot and passes the old value to Config.Drop exactly once. Block.Pop
// hands the element to the caller instead.
//
// # Errors
//
// Contract violations panic with an error wrapping one of the package's
// sentinel errors: Create with a non-positive size (ErrZeroSize), tag
// accessors on the wrong kind of tag (ErrTagKind), At/Set out of range
// (ErrOutOfRange) or on a dead view (ErrViewReleased). Stale keys, full runs
// and out-of-range lookups are reported through ok results.
//
// # Thread Safety
//
// Storage instances are not thread-safe. Callers must synchronize access
// externally.
package blockstore
