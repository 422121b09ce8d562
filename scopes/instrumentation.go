package scopes

import (
	"sync"
	"time"

	"github.com/derkreature/TaskScheduler/core"
)

// TimingFrame is the payload of one profiler scope: when the scope was
// entered and left. LeftAt stays zero while the scope is open.
type TimingFrame struct {
	EnteredAt time.Time
	LeftAt    time.Time
}

// TimingRecord is one emitted profiler sample.
type TimingRecord struct {
	Name      string
	ParentID  int32
	EnteredAt time.Time
	LeftAt    time.Time
}

// Profiler maintains a strong scope stack per worker and implements the
// scheduler's instrumentation hooks with them. Frames survive their pop, so
// samples can be emitted after the enclosing task has finished; Drain
// collects everything recorded on a worker and resets its stack.
//
// Each worker's stack is touched only by that worker's main fiber, after
// the task fiber has suspended, so the stacks themselves need no locking.
// The descriptor registry is shared and race-safe.
type Profiler struct {
	storage *Storage

	mu    sync.Mutex
	sites map[string]int32 // debug id -> descriptor id

	workers []workerScopes
}

type workerScopes struct {
	timings *StrongScopeStack[TimingFrame]
}

var _ core.TaskInstrumentation = (*Profiler)(nil)

// NewProfiler creates a profiler for workerCount workers, recording at most
// capacity frames per worker between drains.
func NewProfiler(workerCount, capacity int, storage *Storage) *Profiler {
	if storage == nil {
		storage = NewStorage(1024)
	}
	p := &Profiler{
		storage: storage,
		sites:   make(map[string]int32),
		workers: make([]workerScopes, workerCount),
	}
	for i := range p.workers {
		p.workers[i] = workerScopes{
			timings: NewStrongScopeStack[TimingFrame](capacity),
		}
	}
	return p
}

// Storage returns the shared descriptor registry.
func (p *Profiler) Storage() *Storage {
	return p.storage
}

func (p *Profiler) descFor(debugID string) int32 {
	if debugID == "" {
		debugID = "task"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.sites[debugID]; ok {
		return id
	}
	id := p.storage.Alloc("", 0, debugID)
	if id == InvalidStorageID {
		panic("scopes: descriptor storage is full")
	}
	p.sites[debugID] = id
	return id
}

// OnTaskStart opens a timing scope for the task on the worker's stack.
func (p *Profiler) OnTaskStart(workerID int, debugID string) {
	p.open(workerID, debugID)
}

// OnTaskResume reopens a timing scope for the resumed slice of the task.
func (p *Profiler) OnTaskResume(workerID int, debugID string) {
	p.open(workerID, debugID)
}

// OnTaskSuspend closes the current slice; the frame stays addressable.
func (p *Profiler) OnTaskSuspend(workerID int, debugID string) {
	p.close(workerID)
}

// OnTaskFinish closes the final slice.
func (p *Profiler) OnTaskFinish(workerID int, debugID string) {
	p.close(workerID)
}

func (p *Profiler) open(workerID int, debugID string) {
	if workerID < 0 || workerID >= len(p.workers) {
		return
	}
	stack := p.workers[workerID].timings
	if id, _ := stack.Push(p.descFor(debugID), TimingFrame{EnteredAt: time.Now()}); id == InvalidStackID {
		// frame log is full until the next drain; the sample is dropped
		return
	}
}

func (p *Profiler) close(workerID int) {
	if workerID < 0 || workerID >= len(p.workers) {
		return
	}
	stack := p.workers[workerID].timings
	id := stack.Top()
	if id == InvalidStackID {
		return
	}
	if frame := stack.Get(id); frame != nil {
		frame.Payload.LeftAt = time.Now()
	}
	stack.Pop()
}

// Drain emits every frame recorded on the worker since the last drain, in
// append order, and resets the worker's stack. Must be called from the
// worker itself or while the worker is quiescent.
func (p *Profiler) Drain(workerID int) []TimingRecord {
	if workerID < 0 || workerID >= len(p.workers) {
		return nil
	}
	stack := p.workers[workerID].timings

	count := stack.Count()
	records := make([]TimingRecord, 0, count)
	for id := int32(1); id <= count; id++ {
		frame := stack.Get(id)
		if frame == nil {
			continue
		}
		name := ""
		if desc := p.storage.Get(frame.DescriptorID()); desc != nil {
			name = desc.Name()
		}
		records = append(records, TimingRecord{
			Name:      name,
			ParentID:  frame.ParentID(),
			EnteredAt: frame.Payload.EnteredAt,
			LeftAt:    frame.Payload.LeftAt,
		})
	}
	stack.Reset()
	return records
}

// =============================================================================
// Label tracker: weak-stack asset/resource labels
// =============================================================================

// LabelTracker keeps a weak scope stack of transient labels per worker,
// the "which asset was loading when it crashed" breadcrumb. Entries cost no
// memory growth; a pop destroys the label.
type LabelTracker struct {
	workers []*WeakScopeStack[string]
}

// NewLabelTracker creates a tracker for workerCount workers with the given
// nesting capacity.
func NewLabelTracker(workerCount, capacity int) *LabelTracker {
	t := &LabelTracker{
		workers: make([]*WeakScopeStack[string], workerCount),
	}
	for i := range t.workers {
		t.workers[i] = NewWeakScopeStack[string](capacity)
	}
	return t
}

// Push records a label for the worker. Returns false on overflow.
func (t *LabelTracker) Push(workerID int, descID int32, label string) bool {
	if workerID < 0 || workerID >= len(t.workers) {
		return false
	}
	id, _ := t.workers[workerID].Push(descID, label)
	return id != InvalidStackID
}

// Pop discards the worker's innermost label.
func (t *LabelTracker) Pop(workerID int) {
	if workerID < 0 || workerID >= len(t.workers) {
		return
	}
	t.workers[workerID].Pop()
}

// Current returns the worker's innermost label, or "" when none is open.
func (t *LabelTracker) Current(workerID int) string {
	if workerID < 0 || workerID >= len(t.workers) {
		return ""
	}
	stack := t.workers[workerID]
	frame := stack.Get(stack.Top())
	if frame == nil {
		return ""
	}
	return frame.Payload
}
