package core

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Task is the unit of work posted to the scheduler. It runs on a dedicated
// fiber and may suspend any number of times through ec.Yield before
// returning, which completes the task.
type Task func(ec *ExecutionContext)

// schedulerTask is the pool payload behind every posted task.
type schedulerTask struct {
	run     Task
	traits  TaskTraits
	debugID string

	// current execution binding, set on first dispatch
	ec *ExecutionContext

	startedAt time.Time
	switches  int
}

// taskRunState tracks where a task is in its fiber lifecycle.
type taskRunState int

const (
	taskRunning taskRunState = iota
	taskYielded
	taskFinished
)

// ExecutionContext is handed to a running task. It carries the fiber
// binding and the cooperative suspension primitive. The context is only
// meaningful on the task's own fiber; it must not escape the task.
type ExecutionContext struct {
	scheduler *FiberScheduler
	slot      *fiberSlot

	// rebound on every dispatch; a resumed task may land on another worker
	workerID    int
	workerFiber *Fiber

	state      taskRunState
	handle     TaskHandle
	task       *schedulerTask
	panicInfo  any
	panicStack []byte
}

// Yield suspends the task and returns the worker to its scheduling loop.
// The task is requeued and resumes later, on the same or another worker,
// with its fiber stack intact.
func (ec *ExecutionContext) Yield() {
	ec.state = taskYielded
	SwitchTo(&ec.slot.fiber, ec.workerFiber)
	// resumed: back to running on whatever worker picked the task up
	ec.state = taskRunning
}

// WorkerID returns the id of the worker currently driving the task.
func (ec *ExecutionContext) WorkerID() int {
	return ec.workerID
}

// DebugID returns the task's diagnostic id, or "" when none was given.
func (ec *ExecutionContext) DebugID() string {
	return ec.task.debugID
}

// Scheduler returns the owning scheduler.
func (ec *ExecutionContext) Scheduler() *FiberScheduler {
	return ec.scheduler
}

// Logger returns the scheduler's logger.
func (ec *ExecutionContext) Logger() Logger {
	return ec.scheduler.config.Logger
}

// fiberSlot pairs a reusable fiber with its current task binding. The
// trampoline loops forever: run the bound task, hand control back, wait for
// the next binding.
type fiberSlot struct {
	fiber Fiber
	ec    *ExecutionContext
}

func fiberTrampoline(userData any) {
	slot := userData.(*fiberSlot)
	for {
		ec := slot.ec
		ec.runTask()
		SwitchTo(&slot.fiber, ec.workerFiber)
	}
}

// runTask executes the bound task's entry with panic capture. It runs on
// the task fiber; the worker inspects the resulting state after the switch
// back.
func (ec *ExecutionContext) runTask() {
	defer func() {
		if r := recover(); r != nil {
			ec.panicInfo = r
			ec.panicStack = debug.Stack()
		}
		ec.state = taskFinished
	}()

	desc := ec.handle.Desc()
	desc.Entry(ec, desc.UserData)
}

// =============================================================================
// FiberScheduler
// =============================================================================

// FiberScheduler multiplexes a bounded pool of workers over a population of
// fiber-backed tasks. Admission goes through the generation-tagged task
// pool; runnable work is ordered by the ready queue; suspended tasks keep
// their fiber and re-enter the queue on resume.
type FiberScheduler struct {
	config *SchedulerConfig

	pool  *TaskPool[schedulerTask]
	queue RunQueue

	signal chan struct{}

	delayManager *DelayManager
	history      *ExecutionHistory

	freeFibers []*fiberSlot
	fiberMu    sync.Mutex

	metricQueued   Int32 // Waiting in ready queue
	metricActive   Int32 // Executing on a worker
	metricOccupied Int32 // Live pool slots
	fiberSwitches  atomic.Int64

	// Lifecycle
	shuttingDown Int32
}

// NewFiberScheduler creates a scheduler from config; nil selects all
// defaults.
func NewFiberScheduler(config *SchedulerConfig) *FiberScheduler {
	cfg := config.withDefaults()

	s := &FiberScheduler{
		config:       cfg,
		signal:       make(chan struct{}, 64),
		delayManager: NewDelayManager(),
		history:      NewExecutionHistory(defaultHistoryCapacity),
	}

	if cfg.Priority {
		s.queue = NewPriorityRunQueue()
	} else {
		s.queue = NewFIFORunQueue()
	}

	s.pool = NewTaskPool(cfg.PoolCapacity,
		func(ec *ExecutionContext, t *schedulerTask) { t.run(ec) },
		func(t *schedulerTask) {
			// drop references so the slot does not pin the closure
			t.run = nil
			t.ec = nil
		},
	)

	return s
}

// Name returns the scheduler's configured name.
func (s *FiberScheduler) Name() string {
	return s.config.Name
}

// Config returns the resolved configuration.
func (s *FiberScheduler) Config() *SchedulerConfig {
	return s.config
}

// PostTask admits a task with default traits.
func (s *FiberScheduler) PostTask(task Task) bool {
	return s.PostTaskWithTraits(task, DefaultTaskTraits())
}

// PostTaskWithTraits admits a task. It returns false when the scheduler is
// shutting down or the task pool has no free slot under the allocation
// cursor; both outcomes are reported to the rejected-task handler.
func (s *FiberScheduler) PostTaskWithTraits(task Task, traits TaskTraits) bool {
	return s.PostNamedTask("", task, traits)
}

// PostNamedTask admits a task with a diagnostic id surfaced in panics,
// records and scope instrumentation.
func (s *FiberScheduler) PostNamedTask(debugID string, task Task, traits TaskTraits) bool {
	if s.shuttingDown.Load() == 1 {
		s.config.RejectedTaskHandler.HandleRejectedTask(s.config.Name, "shutting down")
		s.config.Metrics.RecordTaskRejected(s.config.Name, "shutting down")
		return false
	}

	handle := s.pool.TryAlloc(schedulerTask{
		run:     task,
		traits:  traits,
		debugID: debugID,
	})
	if !handle.IsValid() {
		s.config.RejectedTaskHandler.HandleRejectedTask(s.config.Name, "pool full")
		s.config.Metrics.RecordTaskRejected(s.config.Name, "pool full")
		return false
	}

	occupied := s.metricOccupied.IncFetch()
	s.config.Metrics.RecordPoolOccupancy(s.config.Name, int(occupied))

	s.enqueue(RunItem{Handle: handle, Traits: traits})
	return true
}

// PostDelayedTask admits a task after delay with default traits.
func (s *FiberScheduler) PostDelayedTask(task Task, delay time.Duration) {
	s.PostDelayedTaskWithTraits(task, delay, DefaultTaskTraits())
}

// PostDelayedTaskWithTraits admits a task after delay. Admission into the
// pool happens when the delay expires, so a delayed task occupies no pool
// slot while waiting.
func (s *FiberScheduler) PostDelayedTaskWithTraits(task Task, delay time.Duration, traits TaskTraits) {
	if s.shuttingDown.Load() == 1 {
		return
	}
	s.delayManager.AddDelayed(delay, func() {
		s.PostTaskWithTraits(task, traits)
	})
}

func (s *FiberScheduler) enqueue(item RunItem) {
	s.queue.Push(item)
	depth := s.metricQueued.IncFetch()
	s.config.Metrics.RecordQueueDepth(s.config.Name, int(depth))

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but the item is already queued; a worker
		// will find it on its next pass.
	}
}

// GetWork blocks until a run item is available or stopCh closes.
// Called by workers.
func (s *FiberScheduler) GetWork(stopCh <-chan struct{}) (RunItem, bool) {
	for {
		if item, ok := s.queue.Pop(); ok {
			s.metricQueued.DecFetch()
			return item, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return RunItem{}, false
		}
	}
}

// ExecuteItem runs one ready item on the calling worker until the task
// finishes or yields. mainFiber must be the worker's thread-derived fiber.
func (s *FiberScheduler) ExecuteItem(workerID int, mainFiber *Fiber, item RunItem) {
	if !item.Handle.IsValid() {
		// Task was destroyed while queued (shutdown drain). Nothing to run.
		return
	}

	desc := item.Handle.Desc()
	task := desc.UserData.(*schedulerTask)
	inst := s.config.Instrumentation

	var ec *ExecutionContext
	if item.Fiber == nil {
		slot := s.acquireFiberSlot()
		ec = &ExecutionContext{
			scheduler: s,
			slot:      slot,
			handle:    item.Handle,
			task:      task,
		}
		slot.ec = ec
		task.ec = ec
		task.startedAt = time.Now()
		inst.OnTaskStart(workerID, task.debugID)
	} else {
		ec = task.ec
		inst.OnTaskResume(workerID, task.debugID)
	}

	ec.workerID = workerID
	ec.workerFiber = mainFiber
	ec.state = taskRunning

	task.switches++
	s.fiberSwitches.Add(1)
	s.config.Metrics.RecordFiberSwitch(s.config.Name, workerID)

	start := time.Now()
	s.metricActive.IncFetch()
	SwitchTo(mainFiber, &ec.slot.fiber)
	s.metricActive.DecFetch()

	s.config.Metrics.RecordTaskDuration(s.config.Name, task.traits.Priority, time.Since(start))

	switch ec.state {
	case taskYielded:
		// The fiber has suspended; its stacks are safe to walk now.
		inst.OnTaskSuspend(workerID, task.debugID)
		s.enqueue(RunItem{Handle: item.Handle, Fiber: &ec.slot.fiber, Traits: task.traits})

	case taskFinished:
		if ec.panicInfo != nil {
			s.config.Metrics.RecordTaskPanic(s.config.Name, ec.panicInfo)
			s.config.PanicHandler.HandlePanic(s.config.Name, workerID, task.debugID, ec.panicInfo, ec.panicStack)
		}
		inst.OnTaskFinish(workerID, task.debugID)

		finishedAt := time.Now()
		s.history.Add(TaskExecutionRecord{
			DebugID:       task.debugID,
			SchedulerName: s.config.Name,
			Priority:      task.traits.Priority,
			StartedAt:     task.startedAt,
			FinishedAt:    finishedAt,
			Duration:      finishedAt.Sub(task.startedAt),
			FiberSwitches: task.switches,
			Panicked:      ec.panicInfo != nil,
		})

		slot := ec.slot
		DestroyByHandle(&item.Handle)
		occupied := s.metricOccupied.DecFetch()
		s.config.Metrics.RecordPoolOccupancy(s.config.Name, int(occupied))
		s.releaseFiberSlot(slot)

	default:
		panic("core: task fiber switched back while still running")
	}
}

func (s *FiberScheduler) acquireFiberSlot() *fiberSlot {
	s.fiberMu.Lock()
	var slot *fiberSlot
	if n := len(s.freeFibers); n > 0 {
		slot = s.freeFibers[n-1]
		s.freeFibers[n-1] = nil
		s.freeFibers = s.freeFibers[:n-1]
	}
	s.fiberMu.Unlock()

	if slot == nil {
		slot = &fiberSlot{}
		slot.fiber.Create(s.config.FiberStackSize, fiberTrampoline, slot)
	}
	return slot
}

func (s *FiberScheduler) releaseFiberSlot(slot *fiberSlot) {
	slot.ec = nil
	s.fiberMu.Lock()
	s.freeFibers = append(s.freeFibers, slot)
	s.fiberMu.Unlock()
}

// Shutdown stops admission, drops delayed entries and drains the ready
// queue, destroying every queued task, including tasks that yielded and
// were requeued. A drained yielded task's fiber is never resumed again and
// is not returned to the free-fiber list.
func (s *FiberScheduler) Shutdown() {
	s.shuttingDown.StoreRelaxed(1)
	s.delayManager.Stop()
	s.drainQueue()
}

// ShutdownGraceful waits for queued and active tasks to complete.
// Returns an error if timeout is exceeded before the scheduler goes idle.
func (s *FiberScheduler) ShutdownGraceful(timeout time.Duration) error {
	s.shuttingDown.StoreRelaxed(1)
	s.delayManager.Stop()

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			s.drainQueue()
			return fmt.Errorf("shutdown graceful timeout after %v, forced clearing", timeout)
		case <-ticker.C:
			// Pool occupancy covers a task between its dequeue and its
			// dispatch, when it is neither queued nor active.
			if s.QueuedTaskCount() == 0 && s.ActiveTaskCount() == 0 && s.PoolOccupancy() == 0 {
				return nil
			}
		}
	}
}

// drainQueue destroys every queued item's task so pool slots are returned.
func (s *FiberScheduler) drainQueue() {
	for {
		item, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.metricQueued.DecFetch()
		if DestroyByHandle(&item.Handle) {
			occupied := s.metricOccupied.DecFetch()
			s.config.Metrics.RecordPoolOccupancy(s.config.Name, int(occupied))
		}
	}
}

// Stats snapshots the scheduler counters.
func (s *FiberScheduler) Stats(workers int, running bool) SchedulerStats {
	return SchedulerStats{
		Name:          s.config.Name,
		Workers:       workers,
		Queued:        s.QueuedTaskCount(),
		Active:        s.ActiveTaskCount(),
		Delayed:       s.DelayedTaskCount(),
		PoolOccupied:  int(s.metricOccupied.Load()),
		PoolCapacity:  s.pool.Capacity(),
		FiberSwitches: s.fiberSwitches.Load(),
		Running:       running,
	}
}

// History returns the recent-execution ring.
func (s *FiberScheduler) History() *ExecutionHistory {
	return s.history
}

// Metrics counters
func (s *FiberScheduler) QueuedTaskCount() int  { return int(s.metricQueued.Load()) }
func (s *FiberScheduler) ActiveTaskCount() int  { return int(s.metricActive.Load()) }
func (s *FiberScheduler) DelayedTaskCount() int { return s.delayManager.EntryCount() }
func (s *FiberScheduler) PoolOccupancy() int    { return int(s.metricOccupied.Load()) }
