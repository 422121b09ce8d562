package core

// =============================================================================
// TaskPool: fixed-capacity, lock-free, generation-tagged slab
// =============================================================================

// UnusedTaskID is the free-slot sentinel. A slot id is odd while the slot
// is free and even while it is occupied; live ids are produced by stepping
// a generator by 2, so they start at 2 and stay even.
const UnusedTaskID int32 = 1

// poolSlotHeader is the non-generic head of every pool slot: the generation
// id and the published descriptor. TaskHandle points at this header so
// handles stay a single type regardless of the pool's payload type.
type poolSlotHeader struct {
	id   Int32
	desc TaskDesc
}

type poolSlot[T any] struct {
	poolSlotHeader

	// Storage for the task payload. Well-typed only while id is even.
	task T
}

// TaskPool is a fixed-capacity slab of task slots addressed by a masked
// monotonic cursor. Allocation is lock-free: concurrent TryAlloc callers
// and Destroy callers on other slots never serialize. The pool never
// serializes access to the same slot; the scheduler guarantees a slot is
// not destroyed while concurrently referenced.
//
// The capacity must be a power of two so the cursor can wrap by masking.
type TaskPool[T any] struct {
	slots []poolSlot[T]
	mask  int32

	idGenerator Int32
	index       Int32

	entry   func(ec *ExecutionContext, task *T)
	destroy func(task *T)
}

// NewTaskPool creates a pool of capacity slots whose tasks run entry and
// are released by destroy. destroy may be nil when the payload needs no
// cleanup beyond slot reuse. Panics unless capacity is a power of two.
func NewTaskPool[T any](capacity int, entry func(ec *ExecutionContext, task *T), destroy func(task *T)) *TaskPool[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("core: task pool capacity must be a power of 2")
	}
	if entry == nil {
		panic("core: task pool entry function is nil")
	}

	p := &TaskPool[T]{
		slots: make([]poolSlot[T], capacity),
		mask:  int32(capacity - 1),

		entry:   entry,
		destroy: destroy,
	}
	for i := range p.slots {
		p.slots[i].id.StoreRelaxed(UnusedTaskID)
	}
	return p
}

// Capacity returns the number of slots.
func (p *TaskPool[T]) Capacity() int {
	return len(p.slots)
}

// TryAlloc moves task into the slot under the allocation cursor and returns
// a handle to it. If the ring has lapped a still-live slot the allocation
// fails and the returned handle is invalid; the caller may retry after some
// task is destroyed.
//
// Publication order matters: the payload and descriptor are fully written
// before the new even id is stored. Storing the id is the linearization
// point after which handles validate against this generation.
func (p *TaskPool[T]) TryAlloc(task T) TaskHandle {
	idx := (p.index.IncFetch() - 1) & p.mask
	slot := &p.slots[idx]

	if slot.id.Load()&1 == 0 {
		// Next slot in the ring is still occupied. Can't allocate more.
		return TaskHandle{}
	}

	// Next even id for the new generation.
	id := p.idGenerator.AddFetch(2)

	slot.task = task
	slot.desc = TaskDesc{
		Entry:    p.entryAdapter,
		Destroy:  p.destroyAdapter,
		UserData: &slot.task,
	}
	if dbg, ok := any(&slot.task).(TaskDebugInfo); ok {
		slot.desc.DebugID = dbg.DebugID()
		slot.desc.DebugColor = dbg.DebugColor()
	}
	slot.id.Store(id)

	return TaskHandle{checkID: id, slot: &slot.poolSlotHeader}
}

// Alloc is TryAlloc that treats pool exhaustion as a programming error.
func (p *TaskPool[T]) Alloc(task T) TaskHandle {
	h := p.TryAlloc(task)
	if !h.IsValid() {
		panic("core: task pool allocation failed")
	}
	return h
}

func (p *TaskPool[T]) entryAdapter(ec *ExecutionContext, userData any) {
	p.entry(ec, userData.(*T))
}

func (p *TaskPool[T]) destroyAdapter(userData any) {
	if p.destroy != nil {
		p.destroy(userData.(*T))
	}
}

// =============================================================================
// TaskHandle: generation-checked weak reference into the pool
// =============================================================================

// TaskHandle is a weak reference to a pool slot: the id captured at
// allocation plus the slot pointer. It conveys no ownership. Once the
// slot's generation moves on, the handle is permanently invalid, even if
// the slot is later re-allocated.
type TaskHandle struct {
	checkID int32
	slot    *poolSlotHeader
}

// IsValid reports whether the handle still names a live task: the slot
// exists and its current id equals the captured id.
func (h *TaskHandle) IsValid() bool {
	if h.slot == nil {
		return false
	}
	return h.checkID == h.slot.id.Load()
}

// Desc returns the task descriptor. Calling Desc on an invalid handle is a
// programming error.
func (h *TaskHandle) Desc() *TaskDesc {
	if !h.IsValid() {
		panic("core: task handle is invalid")
	}
	return &h.slot.desc
}

// Release reverts the handle to the free sentinel without touching the
// slot. The counterpart of a moved-from handle.
func (h *TaskHandle) Release() {
	h.checkID = UnusedTaskID
	h.slot = nil
}

// DestroyByHandle retires the task named by a valid handle: it invokes the
// slot's destroy function on the payload and returns the slot's id to the
// free sentinel. Destroy on an invalid handle is a no-op; the at-most-once
// guarantee follows from the generation check.
func DestroyByHandle(h *TaskHandle) bool {
	if !h.IsValid() {
		return false
	}
	desc := &h.slot.desc
	if desc.Destroy == nil || desc.UserData == nil {
		return false
	}

	desc.Destroy(desc.UserData)
	h.slot.id.Store(UnusedTaskID)
	return true
}
