package blockstore

import "github.com/cockroachdb/errors"

// Validate checks the block map and returns the first broken invariant, or nil.
//
// Checked:
//   - the element array holds exactly BlockSize slots per block
//   - the tags partition the store into runs, each continuation block
//     pointing at its run's start
//   - every allocated run is in the active set with a matching span, and
//     holds no more elements than its capacity
//   - no two free runs are adjacent
//   - the free-run index holds exactly the free runs found in the tags
func (s *Storage[T]) Validate() error {
	if want := len(s.tags) * s.blockSize; len(s.data) != want {
		return errors.Wrapf(ErrCorrupt, "%d element slots for %d blocks of %d",
			len(s.data), len(s.tags), s.blockSize)
	}

	var (
		owned, free  int
		prevWasFree  bool
		prevFreeFrom int
	)
	for i := 0; i < len(s.tags); {
		t := s.tags[i]
		switch t.kind {
		case KindOwnedStart:
			blocks, ok := s.active[i]
			if !ok {
				return errors.Wrapf(ErrCorrupt, "block %d: allocated run not in active set", i)
			}
			if blocks <= 0 || i+blocks > len(s.tags) {
				return errors.Wrapf(ErrCorrupt, "block %d: run of %d blocks overruns %d blocks",
					i, blocks, len(s.tags))
			}
			if t.n < 0 || t.n > blocks*s.blockSize {
				return errors.Wrapf(ErrCorrupt, "block %d: %d elements in a run of capacity %d",
					i, t.n, blocks*s.blockSize)
			}
			for j := i + 1; j < i+blocks; j++ {
				if c := s.tags[j]; !c.IsOwned() || c.n != i {
					return errors.Wrapf(ErrCorrupt, "block %d: expected Owned(%d), found %s", j, i, c)
				}
			}
			owned++
			prevWasFree = false
			i += blocks

		case KindEmptyStart:
			span := t.n
			if span <= 0 || i+span > len(s.tags) {
				return errors.Wrapf(ErrCorrupt, "block %d: free run of %d blocks overruns %d blocks",
					i, span, len(s.tags))
			}
			if prevWasFree {
				return errors.Wrapf(ErrCorrupt, "blocks %d and %d: adjacent free runs", prevFreeFrom, i)
			}
			for j := i + 1; j < i+span; j++ {
				if c := s.tags[j]; !c.IsEmpty() || c.n != i {
					return errors.Wrapf(ErrCorrupt, "block %d: expected Empty(%d), found %s", j, i, c)
				}
			}
			r, ok := s.free.Get(i)
			if !ok {
				return errors.Wrapf(ErrCorrupt, "block %d: free run missing from index", i)
			}
			if r.Blocks != span {
				return errors.Wrapf(ErrCorrupt, "block %d: index span %d, tag span %d", i, r.Blocks, span)
			}
			free++
			prevWasFree = true
			prevFreeFrom = i
			i += span

		default:
			return errors.Wrapf(ErrCorrupt, "block %d: expected a run start, found %s", i, t)
		}
	}

	if owned != len(s.active) {
		return errors.Wrapf(ErrCorrupt, "%d allocated runs in tags, %d in active set", owned, len(s.active))
	}
	if free != s.free.Len() {
		return errors.Wrapf(ErrCorrupt, "%d free runs in tags, %d in index", free, s.free.Len())
	}
	return nil
}
