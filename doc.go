// Package taskscheduler provides a fiber-based cooperative task scheduler
// for Go.
//
// A bounded pool of worker threads is multiplexed over a large population
// of lightweight tasks, each running on its own fiber. A task that yields
// keeps its fiber, and therefore its full call stack, and resumes later
// on whichever worker picks it up, without unwinding or re-entering.
//
// # Quick Start
//
// Create a worker pool and post tasks:
//
//	pool := taskscheduler.NewFiberWorkerPool("render", 4, nil)
//	pool.Start(context.Background())
//	defer pool.Stop()
//
//	pool.PostTask(func(ec *core.ExecutionContext) {
//		prepare()
//		ec.Yield() // suspend; resume later on any worker
//		submit()
//	})
//
// # Key Concepts
//
// FiberScheduler: admits tasks into a fixed-capacity, generation-tagged
// task pool and orders runnable work in a ready queue. Admission is
// lock-free; a full pool rejects the post instead of blocking.
//
// TaskHandle: a weak, generation-checked reference to an in-flight task.
// Once the task is destroyed the handle is permanently invalid, even if
// its pool slot is reused.
//
// Fiber: a unit of cooperative execution with a dedicated stack. Workers
// switch between their own main fiber and task fibers explicitly; nothing
// is preempted and nothing migrates mid-instruction.
//
// TaskTraits: priority and attributes attached at post time. Priority
// orders admission when the priority queue is selected; it is a hint, not
// a guarantee.
//
// # Instrumentation
//
// The scopes package supplies interned scope descriptors and per-worker
// push/pop scope stacks. The scheduler drives them through the
// TaskInstrumentation hooks, which fire on the worker's main fiber after
// the task fiber has actually suspended, the point where walking a
// task's scope stacks is safe.
package taskscheduler
