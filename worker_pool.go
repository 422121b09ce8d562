package taskscheduler

import (
	"context"
	"sync"
	"time"

	"github.com/derkreature/TaskScheduler/core"
)

// workerStackSize is the stack region attached to each worker thread.
const workerStackSize = 256 * 1024

// FiberWorkerPool manages a set of worker threads, each with its own
// thread-derived main fiber. Workers pull run items from the scheduler and
// drive task fibers until they finish or yield.
type FiberWorkerPool struct {
	id        string
	workers   int
	scheduler *core.FiberScheduler

	threads []*core.Thread
	stopCh  chan struct{}
	wg      sync.WaitGroup

	running   bool
	runningMu sync.RWMutex
}

// NewFiberWorkerPool creates a pool of workers over a scheduler built from
// config; nil config selects all defaults.
func NewFiberWorkerPool(id string, workers int, config *SchedulerConfig) *FiberWorkerPool {
	return &FiberWorkerPool{
		id:        id,
		workers:   workers,
		scheduler: core.NewFiberScheduler(config),
	}
}

// Scheduler exposes the underlying scheduler, for posting with traits or
// attaching observability pollers.
func (p *FiberWorkerPool) Scheduler() *core.FiberScheduler {
	return p.scheduler
}

// Start launches all worker threads.
func (p *FiberWorkerPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}

	p.stopCh = make(chan struct{})
	p.threads = make([]*core.Thread, p.workers)
	p.running = true

	stopCh := p.stopCh
	if ctx != nil && ctx.Done() != nil {
		// Fold context cancellation into the pool's stop channel.
		go func() {
			select {
			case <-ctx.Done():
				p.Stop()
			case <-stopCh:
			}
		}()
	}

	for i := 0; i < p.workers; i++ {
		workerID := i
		thread := &core.Thread{}
		p.threads[i] = thread
		p.wg.Add(1)
		thread.Start(workerStackSize, func(userData any) {
			defer p.wg.Done()
			p.workerLoop(workerID, userData.(*core.Thread), stopCh)
		}, thread)
	}
}

// workerLoop is the main loop for each worker.
func (p *FiberWorkerPool) workerLoop(id int, thread *core.Thread, stopCh <-chan struct{}) {
	var mainFiber core.Fiber
	mainFiber.CreateFromThread(thread)

	for {
		item, ok := p.scheduler.GetWork(stopCh)
		if !ok {
			// Stop requested
			return
		}
		p.scheduler.ExecuteItem(id, &mainFiber, item)
	}
}

// Stop shuts the pool down: admission closes, queued tasks (including
// yielded tasks waiting to resume) are destroyed and workers are joined.
func (p *FiberWorkerPool) Stop() {
	// Always shut the scheduler down to release queued tasks and delayed
	// entries, even if the pool was never started.
	p.scheduler.Shutdown()

	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	p.running = false
	stopCh := p.stopCh
	p.runningMu.Unlock()

	close(stopCh)
	p.Join()

	p.runningMu.Lock()
	for _, t := range p.threads {
		t.Stop()
	}
	p.threads = nil
	p.runningMu.Unlock()
}

// StopGraceful waits for queued and active tasks to complete before
// stopping workers. Returns an error if timeout is exceeded; workers are
// stopped either way.
func (p *FiberWorkerPool) StopGraceful(timeout time.Duration) error {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return nil
	}
	p.running = false
	stopCh := p.stopCh
	p.runningMu.Unlock()

	err := p.scheduler.ShutdownGraceful(timeout)

	close(stopCh)
	p.Join()

	p.runningMu.Lock()
	for _, t := range p.threads {
		t.Stop()
	}
	p.threads = nil
	p.runningMu.Unlock()

	return err
}

// Join waits for all worker threads to finish.
func (p *FiberWorkerPool) Join() {
	p.wg.Wait()
}

// ID returns the ID of the worker pool.
func (p *FiberWorkerPool) ID() string {
	return p.id
}

// IsRunning returns whether the pool is running.
func (p *FiberWorkerPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// WorkerCount returns the number of workers.
func (p *FiberWorkerPool) WorkerCount() int {
	return p.workers
}

func (p *FiberWorkerPool) QueuedTaskCount() int {
	return p.scheduler.QueuedTaskCount()
}

func (p *FiberWorkerPool) ActiveTaskCount() int {
	return p.scheduler.ActiveTaskCount()
}

func (p *FiberWorkerPool) DelayedTaskCount() int {
	return p.scheduler.DelayedTaskCount()
}

// Stats snapshots the pool's scheduler counters.
func (p *FiberWorkerPool) Stats() SchedulerStats {
	return p.scheduler.Stats(p.workers, p.IsRunning())
}

// PostTask admits a task with default traits.
func (p *FiberWorkerPool) PostTask(task Task) bool {
	return p.scheduler.PostTask(task)
}

// PostTaskWithTraits admits a task with the given traits.
func (p *FiberWorkerPool) PostTaskWithTraits(task Task, traits TaskTraits) bool {
	return p.scheduler.PostTaskWithTraits(task, traits)
}

// PostNamedTask admits a task with a diagnostic id.
func (p *FiberWorkerPool) PostNamedTask(debugID string, task Task, traits TaskTraits) bool {
	return p.scheduler.PostNamedTask(debugID, task, traits)
}

// PostDelayedTask admits a task after delay.
func (p *FiberWorkerPool) PostDelayedTask(task Task, delay time.Duration) {
	p.scheduler.PostDelayedTask(task, delay)
}

// PostDelayedTaskWithTraits admits a task after delay with the given traits.
func (p *FiberWorkerPool) PostDelayedTaskWithTraits(task Task, delay time.Duration, traits TaskTraits) {
	p.scheduler.PostDelayedTaskWithTraits(task, delay, traits)
}

// =============================================================================
// Global Worker Pool Helper (Singleton)
// =============================================================================

var (
	globalWorkerPool *FiberWorkerPool
	globalMu         sync.Mutex
)

// InitGlobalWorkerPool initializes the global worker pool with the
// specified number of workers and starts it immediately.
func InitGlobalWorkerPool(workers int) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalWorkerPool != nil {
		return // Already initialized
	}

	globalWorkerPool = NewFiberWorkerPool("global-pool", workers, nil)
	globalWorkerPool.Start(context.Background())
}

// GetGlobalWorkerPool returns the global worker pool instance.
// It panics if InitGlobalWorkerPool has not been called.
func GetGlobalWorkerPool() *FiberWorkerPool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalWorkerPool == nil {
		panic("GlobalWorkerPool not initialized. Call InitGlobalWorkerPool() first.")
	}
	return globalWorkerPool
}

// ShutdownGlobalWorkerPool stops the global worker pool.
func ShutdownGlobalWorkerPool() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalWorkerPool != nil {
		globalWorkerPool.Stop()
		globalWorkerPool = nil
	}
}
