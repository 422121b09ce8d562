//go:build unix

package core

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MinStackSize is the smallest usable stack request. Mirrors the platform
// minimum thread stack size; AllocStack rejects anything smaller.
const MinStackSize = 16 * 1024

// StackDesc describes a guarded, page-aligned stack region.
//
// Bottom and Top are the bounds of the usable region, guard pages excluded.
// The descriptor is a value; the region it names is owned by whoever
// obtained it from AllocStack until FreeStack is called.
type StackDesc struct {
	// mapping covers the whole mmap region including guard pages
	mapping []byte

	// usable region bounds
	stackBottom uintptr
	stackTop    uintptr
}

// StackBottom returns the low bound of the usable region.
func (d *StackDesc) StackBottom() uintptr {
	return d.stackBottom
}

// StackTop returns the high bound of the usable region.
func (d *StackDesc) StackTop() uintptr {
	return d.stackTop
}

// StackSize returns the usable region size in bytes.
func (d *StackDesc) StackSize() int {
	return int(d.stackTop - d.stackBottom)
}

// IsValid reports whether the descriptor names a live region.
func (d *StackDesc) IsValid() bool {
	return d.mapping != nil
}

// AllocStack maps a stack region of at least size usable bytes, rounded up
// to whole pages, with an inaccessible guard page at each end. A stack probe
// into a guard page faults instead of silently corrupting a neighbour.
func AllocStack(size int) (StackDesc, error) {
	if size < MinStackSize {
		return StackDesc{}, fmt.Errorf("stack size %d below minimum %d", size, MinStackSize)
	}

	pageSize := unix.Getpagesize()
	usable := alignUp(size, pageSize)
	total := usable + 2*pageSize

	mapping, err := unix.Mmap(-1, 0, total,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return StackDesc{}, fmt.Errorf("mmap stack: %w", err)
	}

	// guard pages at both ends
	if err := unix.Mprotect(mapping[:pageSize], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mapping)
		return StackDesc{}, fmt.Errorf("mprotect low guard: %w", err)
	}
	if err := unix.Mprotect(mapping[pageSize+usable:], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mapping)
		return StackDesc{}, fmt.Errorf("mprotect high guard: %w", err)
	}

	bottom := uintptr(unsafe.Pointer(&mapping[0])) + uintptr(pageSize)
	return StackDesc{
		mapping:     mapping,
		stackBottom: bottom,
		stackTop:    bottom + uintptr(usable),
	}, nil
}

// FreeStack unmaps the region named by desc. The descriptor is invalidated.
func FreeStack(desc *StackDesc) error {
	if desc == nil || desc.mapping == nil {
		return nil
	}
	err := unix.Munmap(desc.mapping)
	desc.mapping = nil
	desc.stackBottom = 0
	desc.stackTop = 0
	return err
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
