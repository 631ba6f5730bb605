package blockstore

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/blockkit/internal/bounds"
)

// DefaultBlockSize is the block size used when Config.BlockSize is zero.
const DefaultBlockSize = 64

// Config configures a Storage. Zero fields take defaults.
type Config[T any] struct {
	// BlockSize is the number of elements per block. Fixed for the storage's
	// lifetime. Default: DefaultBlockSize.
	BlockSize int

	// InitialBlocks preallocates capacity for this many blocks.
	InitialBlocks int

	// Drop is called exactly once for every element the storage destroys:
	// elements of removed runs, of all runs on Clear and Close, and elements
	// cut off by Block.Truncate. Elements returned by Block.Pop are handed to
	// the caller and are not passed to Drop.
	Drop func(T)

	// Logger receives debug records for growth, clear and close.
	// Default: the package logger (see BLOCKKIT_LOG_ALLOC).
	Logger *slog.Logger

	// OnGrow is called after the backing store is extended by blocks blocks.
	OnGrow func(blocks int)
}

// DefaultConfig returns the configuration used by New when only a block size
// is given.
func DefaultConfig[T any]() Config[T] {
	return Config[T]{BlockSize: DefaultBlockSize}
}

// Validate reports whether the configuration can build a storage.
func (c Config[T]) Validate() error {
	if c.BlockSize < 0 {
		return errors.Wrapf(ErrBlockSize, "block size %d", c.BlockSize)
	}
	if c.InitialBlocks < 0 {
		return errors.Newf("blockstore: negative initial blocks %d", c.InitialBlocks)
	}
	bs := c.BlockSize
	if bs == 0 {
		bs = DefaultBlockSize
	}
	if _, ok := bounds.MulOverflowSafe(c.InitialBlocks, bs); !ok {
		return errors.Wrapf(ErrTooLarge, "initial blocks %d x block size %d", c.InitialBlocks, bs)
	}
	return nil
}
