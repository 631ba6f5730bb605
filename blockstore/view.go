package blockstore

import "github.com/cockroachdb/errors"

// Block is an exclusive view of one allocated run. It holds the run's key
// until ReturnKey is called.
//
// The first Len() slots of the run hold live elements; the remaining slots up
// to Cap() are unused. A view is dead once its key has been returned or its
// storage has been cleared or closed: Len and Cap report 0, Push rejects every
// item, Pop, Get and GetMut report absence, and At and Set panic.
type Block[T any] struct {
	s   *Storage[T]
	key Key
}

// live reports whether the view still refers to a run of the current generation.
func (b *Block[T]) live() bool {
	return b.s != nil && b.s.owns(b.key)
}

// tag returns the run's start tag. Callers must check live first.
func (b *Block[T]) tag() *Tag {
	return &b.s.tags[b.key.start]
}

// slots returns the run's full storage. It is re-sliced on every call since
// growth may move the backing array.
func (b *Block[T]) slots() []T {
	lo := b.key.start * b.s.blockSize
	hi := lo + b.key.blocks*b.s.blockSize
	return b.s.data[lo:hi:hi]
}

// Key returns the run's key without releasing the view.
func (b *Block[T]) Key() Key { return b.key }

// Len returns the number of live elements.
func (b *Block[T]) Len() int {
	if !b.live() {
		return 0
	}
	return b.tag().Count()
}

// Cap returns the run's capacity in elements.
func (b *Block[T]) Cap() int {
	if !b.live() {
		return 0
	}
	return b.key.blocks * b.s.blockSize
}

// Push appends item. When the run is full (or the view is dead) the item is
// handed back with rejected = true; nothing is dropped.
func (b *Block[T]) Push(item T) (back T, rejected bool) {
	if !b.live() {
		return item, true
	}
	t := b.tag()
	n := t.Count()
	slots := b.slots()
	if n >= len(slots) {
		return item, true
	}
	slots[n] = item
	t.setCount(n + 1)
	var zero T
	return zero, false
}

// Pop removes and returns the last element. Ownership of the element passes to
// the caller; it is not passed to the storage's Drop hook.
func (b *Block[T]) Pop() (T, bool) {
	var zero T
	if !b.live() {
		return zero, false
	}
	t := b.tag()
	n := t.Count()
	if n == 0 {
		return zero, false
	}
	slots := b.slots()
	v := slots[n-1]
	slots[n-1] = zero
	t.setCount(n - 1)
	return v, true
}

// Get returns the element at i.
func (b *Block[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= b.Len() {
		return zero, false
	}
	return b.slots()[i], true
}

// GetMut returns a pointer to the element at i. The pointer is valid until the
// next operation that may grow the storage.
func (b *Block[T]) GetMut(i int) (*T, bool) {
	if i < 0 || i >= b.Len() {
		return nil, false
	}
	return &b.slots()[i], true
}

// At returns the element at i. It panics if i is out of range or the view is dead.
func (b *Block[T]) At(i int) T {
	b.mustIndex(i)
	return b.slots()[i]
}

// Set replaces the element at i. It panics if i is out of range or the view is dead.
func (b *Block[T]) Set(i int, v T) {
	b.mustIndex(i)
	b.slots()[i] = v
}

func (b *Block[T]) mustIndex(i int) {
	if !b.live() {
		panic(errors.Wrapf(ErrViewReleased, "index %d", i))
	}
	if n := b.tag().Count(); i < 0 || i >= n {
		panic(errors.Wrapf(ErrOutOfRange, "index %d with length %d", i, n))
	}
}

// Slice returns the live elements. The slice aliases the run: writes through it
// are visible to later reads, and its capacity is clipped so append cannot
// reach past Len(). Like GetMut, it is valid until the storage next grows.
func (b *Block[T]) Slice() []T {
	if !b.live() {
		return nil
	}
	n := b.tag().Count()
	return b.slots()[:n:n]
}

// Truncate destroys the elements at positions n and above. It does nothing if
// n >= Len().
func (b *Block[T]) Truncate(n int) {
	if !b.live() {
		return
	}
	if n < 0 {
		n = 0
	}
	t := b.tag()
	count := t.Count()
	if n >= count {
		return
	}
	lo := b.key.start * b.s.blockSize
	b.s.dropRange(lo+n, lo+count)
	t.setCount(n)
}

// ReturnKey releases the view and hands back the run's key, which can be passed
// to Storage.Get again or to Storage.Remove. The view is dead afterwards;
// calling ReturnKey again returns the zero Key.
func (b *Block[T]) ReturnKey() Key {
	if b.s == nil {
		return Key{}
	}
	if b.live() {
		b.tag().borrowed = false
	}
	k := b.key
	b.s = nil
	b.key = Key{}
	return k
}
