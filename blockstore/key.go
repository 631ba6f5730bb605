package blockstore

import (
	"fmt"
	"sync/atomic"
)

// storageIDs hands out the owner ids that tie keys to the storage that minted them.
var storageIDs atomic.Uint64

// Key identifies an allocated run. It is the only way to reach the run's
// elements: exchange it for a view with Storage.Get, and get it back with
// Block.ReturnKey.
//
// A Key is a plain value and can be copied, but the storage hands out at most
// one live view per run, so copies cannot be used to alias a run. A Key is
// invalidated by Storage.Clear and Storage.Close.
type Key struct {
	start      int
	blocks     int
	generation uint64
	owner      uint64
}

// Start returns the run's first block.
func (k Key) Start() int { return k.start }

// Blocks returns the number of blocks in the run.
func (k Key) Blocks() int { return k.blocks }

// Generation returns the storage generation the key was minted in.
func (k Key) Generation() uint64 { return k.generation }

// IsZero reports whether k is the zero Key, which never names a run.
func (k Key) IsZero() bool { return k == Key{} }

func (k Key) String() string {
	return fmt.Sprintf("Key{start:%d blocks:%d gen:%d}", k.start, k.blocks, k.generation)
}
