package blockstore

import (
	"math/rand"
	"strconv"
	"testing"
)

// Benchmark_Create_Append measures allocation when every request extends the
// store.
func Benchmark_Create_Append(b *testing.B) {
	s := New[int](16)
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		s.Create(1 + i%64)
		if s.NumBlocks() > 1<<16 {
			s.Clear()
		}
	}
}

// Benchmark_Create_Fragmented measures best-fit allocation over a free-run
// index of the given size. Each iteration takes a run and gives it back, so the
// index size stays constant.
func Benchmark_Create_Fragmented(b *testing.B) {
	for _, freeRuns := range []int{100, 1000, 10000} {
		b.Run(strconv.Itoa(freeRuns)+"_runs", func(b *testing.B) {
			s := New[int](8)
			rng := rand.New(rand.NewSource(42))

			// Alternate free and pinned runs so frees never coalesce.
			var toFree []Key
			for range freeRuns {
				toFree = append(toFree, s.Create(8*(1+rng.Intn(16))))
				s.Create(1)
			}
			for _, k := range toFree {
				s.Remove(k)
			}

			sizes := make([]int, 1024)
			for i := range sizes {
				sizes[i] = 8 * (1 + rng.Intn(16))
			}

			b.ReportAllocs()
			for i := 0; b.Loop(); i++ {
				k := s.Create(sizes[i%len(sizes)])
				s.Remove(k)
			}
		})
	}
}

// Benchmark_PushPop measures element access through a view.
func Benchmark_PushPop(b *testing.B) {
	s := New[int](64)
	view, _ := s.Get(s.Create(64))
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		if _, rejected := view.Push(i); rejected {
			for view.Len() > 0 {
				view.Pop()
			}
		}
	}
}
