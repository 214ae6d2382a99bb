package wasmrt

import (
	"github.com/Hyphaeic/radixrunner-wasm/region"
	"github.com/tetratelabs/wazero/experimental"
)

// regionAllocator hands the shared region to wazero as the backing store of
// a linear memory.
type regionAllocator struct {
	r *region.Region
}

func (a regionAllocator) Allocate(_, _ uint64) experimental.LinearMemory {
	return regionMemory{buf: a.r.Bytes()}
}

// regionMemory never moves or grows. A shared memory requires a stable
// address, and the region size is fixed for its lifetime.
type regionMemory struct {
	buf []byte
}

func (m regionMemory) Reallocate(size uint64) []byte {
	if size > uint64(len(m.buf)) {
		return nil
	}

	return m.buf[:size]
}

// Free does nothing; the region is released by its owner.
func (m regionMemory) Free() {}
