package blockstore

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// TagKind classifies a block.
type TagKind uint8

const (
	kindInvalid TagKind = iota

	// KindOwnedStart is the first block of an allocated run.
	KindOwnedStart
	// KindOwned is a continuation block of an allocated run.
	KindOwned
	// KindEmptyStart is the first block of a free run.
	KindEmptyStart
	// KindEmpty is a continuation block of a free run.
	KindEmpty
)

func (k TagKind) String() string {
	switch k {
	case KindOwnedStart:
		return "OwnedStart"
	case KindOwned:
		return "Owned"
	case KindEmptyStart:
		return "EmptyStart"
	case KindEmpty:
		return "Empty"
	default:
		return "Invalid"
	}
}

// Tag is the metadata kept for every block of the backing store.
//
// The meaning of n depends on the kind:
//
//	OwnedStart  number of initialised elements in the run
//	Owned       first block of the owning run
//	EmptyStart  number of blocks in the free run
//	Empty       first block of the free run
type Tag struct {
	kind     TagKind
	borrowed bool // OwnedStart only: a live view holds the run
	n        int
}

// OwnedStartTag returns the tag of an allocated run's first block.
func OwnedStartTag(count int) Tag { return Tag{kind: KindOwnedStart, n: count} }

// OwnedTag returns the tag of an allocated run's continuation block.
func OwnedTag(start int) Tag { return Tag{kind: KindOwned, n: start} }

// EmptyStartTag returns the tag of a free run's first block.
func EmptyStartTag(blocks int) Tag { return Tag{kind: KindEmptyStart, n: blocks} }

// EmptyTag returns the tag of a free run's continuation block.
func EmptyTag(start int) Tag { return Tag{kind: KindEmpty, n: start} }

// Kind returns the tag's kind.
func (t Tag) Kind() TagKind { return t.kind }

// IsOwnedStart reports whether t begins an allocated run.
func (t Tag) IsOwnedStart() bool { return t.kind == KindOwnedStart }

// IsOwned reports whether t continues an allocated run.
func (t Tag) IsOwned() bool { return t.kind == KindOwned }

// IsEmptyStart reports whether t begins a free run.
func (t Tag) IsEmptyStart() bool { return t.kind == KindEmptyStart }

// IsEmpty reports whether t continues a free run.
func (t Tag) IsEmpty() bool { return t.kind == KindEmpty }

// IsFree reports whether t belongs to a free run.
func (t Tag) IsFree() bool { return t.kind == KindEmptyStart || t.kind == KindEmpty }

// Borrowed reports whether a live view currently holds the run. Only meaningful
// for OwnedStart tags.
func (t Tag) Borrowed() bool { return t.borrowed }

// Count returns the number of initialised elements of an allocated run.
// It panics unless t is an OwnedStart tag.
func (t Tag) Count() int {
	if t.kind != KindOwnedStart {
		panic(errors.Wrapf(ErrTagKind, "count of %s tag", t.kind))
	}
	return t.n
}

// Span returns the number of blocks in a free run.
// It panics unless t is an EmptyStart tag.
func (t Tag) Span() int {
	if t.kind != KindEmptyStart {
		panic(errors.Wrapf(ErrTagKind, "span of %s tag", t.kind))
	}
	return t.n
}

// Parent returns the first block of the run a continuation block belongs to.
// It panics unless t is an Owned or Empty tag.
func (t Tag) Parent() int {
	if t.kind != KindOwned && t.kind != KindEmpty {
		panic(errors.Wrapf(ErrTagKind, "parent of %s tag", t.kind))
	}
	return t.n
}

func (t *Tag) setCount(n int) {
	if t.kind != KindOwnedStart {
		panic(errors.Wrapf(ErrTagKind, "set count of %s tag", t.kind))
	}
	t.n = n
}

func (t Tag) String() string {
	if t.borrowed {
		return fmt.Sprintf("%s(%d, borrowed)", t.kind, t.n)
	}
	return fmt.Sprintf("%s(%d)", t.kind, t.n)
}
