package blockstore

import "github.com/cockroachdb/errors"

var (
	// ErrZeroSize indicates a request for a run of zero (or negative) elements.
	ErrZeroSize = errors.New("blockstore: size must be greater than zero")

	// ErrTooLarge indicates a request whose block or element count overflows int.
	ErrTooLarge = errors.New("blockstore: size overflows the backing store")

	// ErrBlockSize indicates an invalid block size in the storage configuration.
	ErrBlockSize = errors.New("blockstore: block size must be greater than zero")

	// ErrTagKind indicates a tag accessor was called on a tag of the wrong kind.
	ErrTagKind = errors.New("blockstore: wrong block tag kind")

	// ErrClosed indicates an allocation on a closed storage.
	ErrClosed = errors.New("blockstore: storage closed")

	// ErrViewReleased indicates use of a block view after its key was returned
	// or its storage was cleared.
	ErrViewReleased = errors.New("blockstore: block view released")

	// ErrOutOfRange indicates an element index outside [0, Len()).
	ErrOutOfRange = errors.New("blockstore: index out of range")

	// ErrCorrupt indicates inconsistent internal bookkeeping.
	ErrCorrupt = errors.New("blockstore: corrupt block map")
)
