package blockstore

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/blockkit/freeindex"
)

// dropCounter records every element passed to a storage's Drop hook.
type dropCounter struct {
	counts map[int]int
	total  int
}

func newDropCounter() *dropCounter {
	return &dropCounter{counts: make(map[int]int)}
}

func (d *dropCounter) drop(v int) {
	d.counts[v]++
	d.total++
}

// newCountingStorage returns an int storage whose drops are recorded.
func newCountingStorage(t testing.TB, blockSize int) (*Storage[int], *dropCounter) {
	t.Helper()
	dc := newDropCounter()
	s, err := NewWithConfig(Config[int]{BlockSize: blockSize, Drop: dc.drop})
	require.NoError(t, err)
	return s, dc
}

// assertInvariants validates the block map and checks that the given keys name
// pairwise disjoint block ranges.
func assertInvariants(t testing.TB, s *Storage[int], keys ...Key) {
	t.Helper()
	require.NoError(t, s.Validate())

	owner := make(map[int]Key)
	for _, k := range keys {
		for b := k.Start(); b < k.Start()+k.Blocks(); b++ {
			if other, ok := owner[b]; ok {
				require.Failf(t, "overlapping keys", "block %d claimed by %v and %v", b, other, k)
			}
			owner[b] = k
		}
	}
}

// freeRuns returns the free-run index as runs in ascending start order.
func freeRuns(s *Storage[int]) []freeindex.Run {
	return s.free.Runs()
}

// fill pushes values into the run named by k and returns the key.
func fill(t testing.TB, s *Storage[int], k Key, values ...int) Key {
	t.Helper()
	b, ok := s.Get(k)
	require.True(t, ok, "get %v", k)
	for _, v := range values {
		_, rejected := b.Push(v)
		require.False(t, rejected, "push %d into %v", v, k)
	}
	return b.ReturnKey()
}

// recoverErr runs fn and returns the error it panicked with, or nil.
func recoverErr(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				e = errors.Newf("non-error panic: %v", r)
			}
			err = e
		}
	}()
	fn()
	return nil
}
