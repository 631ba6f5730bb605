package blockstore

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDropExactlyOnce pushes distinct values through every path that destroys
// elements and checks each one reaches Drop exactly once, except the ones
// handed back by Pop.
func TestDropExactlyOnce(t *testing.T) {
	s, dc := newCountingStorage(t, 3)

	next := 0
	pushN := func(k Key, n int) Key {
		b, ok := s.Get(k)
		require.True(t, ok)
		for range n {
			next++
			_, rejected := b.Push(next)
			require.False(t, rejected)
		}
		return b.ReturnKey()
	}

	a := pushN(s.Create(5), 5)   // 1..5
	b := pushN(s.Create(3), 2)   // 6..7
	c := pushN(s.Create(7), 7)   // 8..14
	d := pushN(s.Create(1), 1)   // 15
	require.True(t, s.Remove(b)) // drops 6, 7

	view, ok := s.Get(c)
	require.True(t, ok)
	popped, ok := view.Pop() // 14 goes to the caller
	require.True(t, ok)
	assert.Equal(t, 14, popped)
	view.Truncate(4) // drops 12, 13
	c = view.ReturnKey()

	require.True(t, s.Remove(d)) // drops 15
	s.Clear()                    // drops 1..5, 8..11

	for v := 1; v <= 15; v++ {
		want := 1
		if v == 14 {
			want = 0
		}
		assert.Equal(t, want, dc.counts[v], "value %d", v)
	}
	assert.Equal(t, 14, dc.total)
	assert.Equal(t, 14, s.Stats().Drops)

	for _, k := range []Key{a, c} {
		_, ok := s.Get(k)
		assert.False(t, ok, "%v survived Clear", k)
	}

	// Clear destroyed everything; Close has nothing left to drop.
	s.Close()
	assert.Equal(t, 14, dc.total)
}

// TestDropReleasesReferences: destroyed slots must not keep pointers alive.
func TestDropReleasesReferences(t *testing.T) {
	s := New[*int](2)
	k := s.Create(2)
	b, ok := s.Get(k)
	require.True(t, ok)
	x, y := 1, 2
	b.Push(&x)
	b.Push(&y)
	k = b.ReturnKey()

	require.True(t, s.Remove(k))
	for i, p := range s.data {
		assert.Nil(t, p, "slot %d", i)
	}
}

// TestRandomWorkloadKeepsInvariants drives a fixed-seed mix of create, fill,
// remove and clear operations and validates the block map after every step.
func TestRandomWorkloadKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, dc := newCountingStorage(t, 8)

	type live struct {
		key  Key
		vals []int
	}
	var runs []live
	next, pushed, popped := 0, 0, 0

	for step := range 3000 {
		switch op := rng.Intn(100); {
		case op < 45:
			size := 1 + rng.Intn(40)
			k := s.Create(size)
			require.GreaterOrEqual(t, k.Blocks()*s.BlockSize(), size)
			require.Equal(t, (size+7)/8, k.Blocks(), "step %d: blocks for size %d", step, size)

			b, ok := s.Get(k)
			require.True(t, ok, "step %d", step)
			n := rng.Intn(size + 1)
			vals := make([]int, 0, n)
			for range n {
				next++
				_, rejected := b.Push(next)
				require.False(t, rejected)
				vals = append(vals, next)
			}
			pushed += n
			if n > 0 && rng.Intn(4) == 0 {
				_, ok := b.Pop()
				require.True(t, ok)
				vals = vals[:n-1]
				popped++
			}
			runs = append(runs, live{key: b.ReturnKey(), vals: vals})

		case op < 90:
			if len(runs) == 0 {
				continue
			}
			i := rng.Intn(len(runs))
			r := runs[i]

			b, ok := s.Get(r.key)
			require.True(t, ok, "step %d", step)
			require.Equal(t, len(r.vals), b.Len())
			if len(r.vals) > 0 {
				require.Equal(t, r.vals, b.Slice(), "step %d: run %v", step, r.key)
			}
			k := b.ReturnKey()

			require.True(t, s.Remove(k), "step %d", step)
			require.False(t, s.Remove(k), "step %d: double remove", step)
			runs = append(runs[:i], runs[i+1:]...)

		case op < 99:
			// Free space must never be left idle next to an allocation request
			// it could satisfy.
			u := s.Usage()
			if u.FreeRuns > 0 {
				largest := 0
				for _, fr := range s.FreeRuns() {
					largest = max(largest, fr.Blocks)
				}
				before := s.NumBlocks()
				k := s.Create(largest * s.BlockSize())
				require.Equal(t, before, s.NumBlocks(), "step %d: grew despite a fitting free run", step)
				runs = append(runs, live{key: k})
			}

		default:
			stale := runs
			s.Clear()
			runs = nil
			for _, r := range stale {
				_, ok := s.Get(r.key)
				require.False(t, ok, "step %d: stale key accepted", step)
			}
		}

		keys := make([]Key, len(runs))
		for i, r := range runs {
			keys[i] = r.key
		}
		assertInvariants(t, s, keys...)
		require.Equal(t, len(runs), s.Len())
	}

	s.Close()
	assert.Equal(t, pushed-popped, dc.total, "every pushed element dropped once, popped ones excluded")
}

// TestRandomWorkloadMatchesLinearBestFit compares each allocation against a
// linear scan over the free runs, the straightforward definition of best fit.
func TestRandomWorkloadMatchesLinearBestFit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New[byte](4)
	var keys []Key

	for range 2000 {
		if len(keys) > 0 && rng.Intn(2) == 0 {
			i := rng.Intn(len(keys))
			require.True(t, s.Remove(keys[i]))
			keys = append(keys[:i], keys[i+1:]...)
			continue
		}

		size := 1 + rng.Intn(24)
		need := (size + 3) / 4

		wantStart, wantSpan := -1, 0
		for _, fr := range s.FreeRuns() {
			if fr.Blocks < need {
				continue
			}
			if wantStart < 0 || fr.Blocks < wantSpan {
				wantStart, wantSpan = fr.Start, fr.Blocks
			}
		}

		k := s.Create(size)
		if wantStart >= 0 {
			require.Equal(t, wantStart, k.Start(), "size %d over %v", size, s.FreeRuns())
		}
		keys = append(keys, k)
	}
	require.NoError(t, s.Validate())
}
