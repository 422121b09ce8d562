package core

import (
	"fmt"
	"runtime"
)

// ThreadEntryFunc is the entry point of a worker thread or fiber.
type ThreadEntryFunc func(userData any)

// Thread is a worker thread: a goroutine pinned to an OS thread for its
// whole lifetime, carrying a dedicated stack region descriptor.
//
// The descriptor backs CreateFromThread: a fiber derived from the thread
// borrows these bounds instead of allocating its own stack. Go manages the
// goroutine's actual stack; the region here is the bounded scratch area the
// scheduler accounts against the thread.
type Thread struct {
	goroutineID Int32 // low 32 bits of the goroutine id; 0 until the thread goroutine has started
	gid         int64
	stack       StackDesc
	done        chan struct{}
	started     bool
}

// Start launches the thread with a stack region of the given size and runs
// entry(userData) on it. Panics on a second Start or when the stack size is
// below the platform minimum.
func (t *Thread) Start(stackSize int, entry ThreadEntryFunc, userData any) {
	if t.started {
		panic("core: thread already started")
	}
	stack, err := AllocStack(stackSize)
	if err != nil {
		panic(fmt.Sprintf("core: thread stack allocation failed: %v", err))
	}
	t.stack = stack
	t.done = make(chan struct{})
	t.started = true

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(t.done)

		t.gid = currentGoroutineID()
		t.goroutineID.Store(int32(t.gid))

		entry(userData)
	}()
}

// Stop joins the thread: it blocks until the entry function has returned,
// then releases the stack region. Safe to call more than once.
func (t *Thread) Stop() {
	if !t.started {
		return
	}
	<-t.done
	t.started = false
	if t.stack.IsValid() {
		_ = FreeStack(&t.stack)
	}
}

// IsCurrentThread reports whether the caller is running on this thread.
func (t *Thread) IsCurrentThread() bool {
	if t.goroutineID.Load() == 0 {
		return false
	}
	return currentGoroutineID() == t.gid
}

// GetStackBottom returns the low bound of the thread's stack region.
func (t *Thread) GetStackBottom() uintptr {
	return t.stack.StackBottom()
}

// GetStackSize returns the size of the thread's stack region.
func (t *Thread) GetStackSize() int {
	return t.stack.StackSize()
}
