package core

// =============================================================================
// Fiber: cooperative execution context
// =============================================================================

// Fiber is a unit of cooperative execution with its own stack region and a
// parked goroutine holding its live call state.
//
// The classic rendition saves CPU registers and swaps the stack pointer. In
// Go the runtime owns register state, so a fiber is realized as a goroutine
// parked on a rendezvous channel: SwitchTo wakes the target's goroutine and
// parks the caller's. The channel operations establish the same
// happens-before edge the hardware memory barrier provides in the classic
// rendition, and the parked goroutine preserves the full call stack between
// suspension and resumption, on whatever worker resumes it.
//
// A fiber created with Create owns a freshly allocated stack region and
// releases it in Destroy. A fiber created with CreateFromThread borrows the
// thread's region and never releases it. Ownership is decided by whether an
// entry function was supplied.
type Fiber struct {
	entry    ThreadEntryFunc // nil for thread-derived fibers
	userData any

	stack StackDesc

	resume chan struct{}
	quit   chan struct{}

	isInitialized bool
}

// CreateFromThread captures the calling thread's execution as a fiber. The
// fiber borrows the thread's stack region and has no entry function: it is
// resumable at whatever point it later suspends in SwitchTo.
//
// Panics if the fiber is already initialized or if the caller is not
// running on thread.
func (f *Fiber) CreateFromThread(thread *Thread) {
	if f.isInitialized {
		panic("core: fiber already initialized")
	}
	if !thread.IsCurrentThread() {
		panic("core: can create fiber only from the current thread")
	}

	f.entry = nil
	f.userData = nil
	f.stack = StackDesc{
		stackBottom: thread.GetStackBottom(),
		stackTop:    thread.GetStackBottom() + uintptr(thread.GetStackSize()),
	}
	f.resume = make(chan struct{})
	f.quit = make(chan struct{})
	f.isInitialized = true
}

// Create initializes the fiber with a fresh stack of stackSize bytes and
// arranges for the first resumption to call entry(userData) on it.
//
// The entry function must never return: once entered it must eventually
// suspend with SwitchTo and be resumed until the scheduler retires the
// fiber. A returning entry function is process-fatal.
//
// Panics if the fiber is already initialized or stackSize is below
// MinStackSize.
func (f *Fiber) Create(stackSize int, entry ThreadEntryFunc, userData any) {
	if f.isInitialized {
		panic("core: fiber already initialized")
	}
	if entry == nil {
		panic("core: fiber entry function is nil")
	}
	stack, err := AllocStack(stackSize)
	if err != nil {
		panic("core: " + err.Error())
	}

	f.entry = entry
	f.userData = userData
	f.stack = stack
	f.resume = make(chan struct{})
	f.quit = make(chan struct{})
	f.isInitialized = true

	go f.fiberMain()
}

// fiberMain gates the fiber goroutine until its first resumption, then
// hands control to the entry function.
func (f *Fiber) fiberMain() {
	select {
	case <-f.resume:
	case <-f.quit:
		return
	}
	f.entry(f.userData)
	panic("core: fiber entry function returned; a fiber must suspend, never return")
}

// IsInitialized reports whether the fiber has been created.
func (f *Fiber) IsInitialized() bool {
	return f.isInitialized
}

// StackDesc returns the fiber's stack region descriptor.
func (f *Fiber) StackDesc() StackDesc {
	return f.stack
}

// Destroy releases the fiber's resources. A fiber that owns its stack and
// was never resumed has its goroutine unblocked and its stack freed. A
// fiber whose entry is mid-flight must have suspended for good; destroying
// it releases the stack region while the scheduler guarantees the fiber is
// never switched to again.
func (f *Fiber) Destroy() {
	if !f.isInitialized {
		return
	}
	if f.entry != nil {
		close(f.quit)
		_ = FreeStack(&f.stack)
	}
	f.isInitialized = false
}

// SwitchTo transfers the calling worker's execution from one fiber to
// another. Control re-enters from when some later SwitchTo targets it, on
// the same or another worker. Both fibers must be initialized.
//
// The channel send/receive pair is a full memory barrier: every write made
// before the switch on the outgoing stack is visible after the switch on
// the incoming one.
func SwitchTo(from, to *Fiber) {
	if !from.isInitialized {
		panic("core: switch from an uninitialized fiber")
	}
	if !to.isInitialized {
		panic("core: switch to an uninitialized fiber")
	}

	// Wake the target, then park until this fiber is resumed. Both channels
	// are unbuffered, so a resume can never be lost: a sender blocks until
	// the parked side is actually receiving.
	to.resume <- struct{}{}
	<-from.resume
}
