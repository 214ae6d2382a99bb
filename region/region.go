// Package region allocates the memory block shared by the controller and the
// worker and gives access to the head counter stored inside it.
//
// The head counter is a little-endian uint64 at HeadOffset. The controller
// only ever reads it; the computation module running on the worker is its only
// writer. Reads go through sync/atomic, so on the supported little-endian
// hosts a read observes either the old or the new value of an aligned 64-bit
// store and never a mix of the two.
package region

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	// PageSize is the size of one WebAssembly page.
	PageSize = 64 * 1024

	// DefaultPages is the page count the reference computation module is
	// linked against.
	DefaultPages = 256

	// DefaultSize is the byte size of a region with DefaultPages pages.
	DefaultSize = DefaultPages * PageSize

	// HeadOffset is the byte offset of the head counter.
	HeadOffset = 0x100

	// HeadSize is the byte width of the head counter.
	HeadSize = 8
)

// AllocationError is returned when a shared region cannot be created.
type AllocationError struct {
	Size   int
	Reason string
	Err    error
}

func (e *AllocationError) Error() string {
	msg := fmt.Sprintf("region: cannot allocate %d bytes", e.Size)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// A Region is a fixed-size block of memory that both execution contexts
// address directly.
type Region struct {
	buf     []byte
	head    *uint64
	mapped  bool
	release func([]byte) error

	releaseOnce sync.Once
	releaseErr  error
}

// Allocate creates a region of sizeBytes bytes and zeroes the head counter.
// The size must be a positive multiple of PageSize.
func Allocate(sizeBytes int) (*Region, error) {
	if sizeBytes <= 0 || sizeBytes%PageSize != 0 {
		return nil, &AllocationError{
			Size:   sizeBytes,
			Reason: fmt.Sprintf("size must be a positive multiple of %d", PageSize),
		}
	}

	if !hostIsLittleEndian() {
		return nil, &AllocationError{
			Size:   sizeBytes,
			Reason: "host byte order is not little-endian",
		}
	}

	buf, mapped, release, err := mapShared(sizeBytes)
	if err != nil {
		return nil, &AllocationError{Size: sizeBytes, Err: err}
	}

	headAddr := unsafe.Pointer(&buf[HeadOffset])
	if uintptr(headAddr)%HeadSize != 0 {
		_ = release(buf)

		return nil, &AllocationError{
			Size:   sizeBytes,
			Reason: "head counter is not 8-byte aligned",
		}
	}

	r := &Region{
		buf:     buf,
		head:    (*uint64)(headAddr),
		mapped:  mapped,
		release: release,
	}

	// The platform may hand back recycled memory. A stale head would make
	// the handshake verification pass without the worker having written.
	r.StoreHead(0)

	return r, nil
}

// Bytes returns the whole region. The slice aliases the shared memory.
func (r *Region) Bytes() []byte {
	return r.buf
}

// Size returns the region size in bytes.
func (r *Region) Size() int {
	return len(r.buf)
}

// Pages returns the region size in PageSize pages.
func (r *Region) Pages() int {
	return len(r.buf) / PageSize
}

// Mapped tells whether the region is backed by an OS shared mapping rather
// than the Go heap.
func (r *Region) Mapped() bool {
	return r.mapped
}

// LoadHead reads the head counter.
func (r *Region) LoadHead() uint64 {
	return atomic.LoadUint64(r.head)
}

// StoreHead overwrites the head counter. Only the writer side and debugging
// tools should call it.
func (r *Region) StoreHead(v uint64) {
	atomic.StoreUint64(r.head, v)
}

// AddHead adds delta to the head counter and returns the new value. Go-native
// computation modules use it as their tick.
func (r *Region) AddHead(delta uint64) uint64 {
	return atomic.AddUint64(r.head, delta)
}

// Release returns the memory to the platform. The region must not be used
// afterwards. Calling Release more than once is harmless.
func (r *Region) Release() error {
	r.releaseOnce.Do(func() {
		r.releaseErr = r.release(r.buf)
		r.buf = nil
		r.head = nil
	})

	return r.releaseErr
}

func hostIsLittleEndian() bool {
	probe := uint16(1)
	return *(*byte)(unsafe.Pointer(&probe)) == 1
}
