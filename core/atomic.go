package core

import "sync/atomic"

// =============================================================================
// Atomic primitives
// =============================================================================

// Int32 is a 32-bit atomic cell.
//
// The zero value is ready to use, so an Int32 embedded in a package-level
// variable needs no constructor call. This matters for one-time
// initialization cells (see scopes.RegistrationCell), which must be usable
// before any init function runs.
//
// All fetch operations are single hardware RMW instructions and therefore
// wait-free.
type Int32 struct {
	v int32
}

// NewInt32 creates an Int32 holding the given initial value.
func NewInt32(v int32) Int32 {
	return Int32{v: v}
}

// Load returns the current value with acquire ordering.
func (a *Int32) Load() int32 {
	return atomic.LoadInt32(&a.v)
}

// Store sets the cell to v and returns the previous value.
func (a *Int32) Store(v int32) int32 {
	return atomic.SwapInt32(&a.v, v)
}

// StoreRelaxed sets the cell to v without returning the previous value.
// Go's memory model has no relaxed ordering; the name marks call sites
// that do not depend on the previous value.
func (a *Int32) StoreRelaxed(v int32) {
	atomic.StoreInt32(&a.v, v)
}

// IncFetch atomically increments the cell and returns the new value.
func (a *Int32) IncFetch() int32 {
	return atomic.AddInt32(&a.v, 1)
}

// DecFetch atomically decrements the cell and returns the new value.
func (a *Int32) DecFetch() int32 {
	return atomic.AddInt32(&a.v, -1)
}

// AddFetch atomically adds n to the cell and returns the new value.
func (a *Int32) AddFetch(n int32) int32 {
	return atomic.AddInt32(&a.v, n)
}

// CompareAndSwap replaces the cell with v if it currently holds compare.
// The previous value is returned in all cases, so the caller can tell
// whether the swap happened by checking prev == compare.
func (a *Int32) CompareAndSwap(compare, v int32) int32 {
	for {
		prev := atomic.LoadInt32(&a.v)
		if prev != compare {
			return prev
		}
		if atomic.CompareAndSwapInt32(&a.v, compare, v) {
			return prev
		}
	}
}

// Ptr is an atomic pointer cell. Like Int32, the zero value (holding nil)
// is ready to use.
type Ptr[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the current pointer with acquire ordering.
func (a *Ptr[T]) Load() *T {
	return a.p.Load()
}

// Store sets the cell to p and returns the previous pointer.
func (a *Ptr[T]) Store(p *T) *T {
	return a.p.Swap(p)
}

// StoreRelaxed sets the cell to p without returning the previous pointer.
func (a *Ptr[T]) StoreRelaxed(p *T) {
	a.p.Store(p)
}

// CompareAndSwap replaces the cell with p if it currently holds compare,
// returning the previous pointer in all cases.
func (a *Ptr[T]) CompareAndSwap(compare, p *T) *T {
	for {
		prev := a.p.Load()
		if prev != compare {
			return prev
		}
		if a.p.CompareAndSwap(compare, p) {
			return prev
		}
	}
}
