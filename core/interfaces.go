package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics on its fiber.
// This allows custom panic handling, logging, and recovery strategies.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - schedulerName: The name of the scheduler where the panic occurred
	// - workerID: The ID of the worker whose fiber observed the panic
	// - debugID: The panicked task's diagnostic id (may be empty)
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(schedulerName string, workerID int, debugID string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(schedulerName string, workerID int, debugID string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Task %q panic: %v\nStack trace:\n%s",
		workerID, schedulerName, debugID, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution.
type Metrics interface {
	// RecordTaskDuration records how long a task ran on a fiber before it
	// finished or yielded.
	RecordTaskDuration(schedulerName string, priority TaskPriority, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(schedulerName string, panicInfo any)

	// RecordQueueDepth records the current ready-queue depth.
	RecordQueueDepth(schedulerName string, depth int)

	// RecordTaskRejected records that a task was rejected (pool full,
	// shutdown).
	RecordTaskRejected(schedulerName string, reason string)

	// RecordFiberSwitch records one fiber context switch on a worker.
	RecordFiberSwitch(schedulerName string, workerID int)

	// RecordPoolOccupancy records how many task-pool slots are live.
	RecordPoolOccupancy(schedulerName string, occupied int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(schedulerName string, priority TaskPriority, duration time.Duration) {
}
func (m *NilMetrics) RecordTaskPanic(schedulerName string, panicInfo any)    {}
func (m *NilMetrics) RecordQueueDepth(schedulerName string, depth int)       {}
func (m *NilMetrics) RecordTaskRejected(schedulerName string, reason string) {}
func (m *NilMetrics) RecordFiberSwitch(schedulerName string, workerID int)   {}
func (m *NilMetrics) RecordPoolOccupancy(schedulerName string, occupied int) {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a task cannot be admitted.
// This can happen when:
// - The scheduler is shutting down
// - The task pool has lapped a live slot (PoolFull)
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(schedulerName string, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that logs rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(schedulerName string, reason string) {
	fmt.Printf("[Scheduler %s] Task rejected: %s\n", schedulerName, reason)
}

// =============================================================================
// TaskInstrumentation: scope-stack hooks around fiber transitions
// =============================================================================

// TaskInstrumentation observes task lifecycle transitions on a worker. The
// scopes package supplies implementations that maintain per-worker scope
// stacks; the scheduler invokes the hooks on the worker's main fiber, after
// the task's fiber has actually suspended, so walking the stacks is safe.
type TaskInstrumentation interface {
	OnTaskStart(workerID int, debugID string)
	OnTaskSuspend(workerID int, debugID string)
	OnTaskResume(workerID int, debugID string)
	OnTaskFinish(workerID int, debugID string)
}

// NilInstrumentation is the default no-op instrumentation.
type NilInstrumentation struct{}

func (NilInstrumentation) OnTaskStart(workerID int, debugID string)   {}
func (NilInstrumentation) OnTaskSuspend(workerID int, debugID string) {}
func (NilInstrumentation) OnTaskResume(workerID int, debugID string)  {}
func (NilInstrumentation) OnTaskFinish(workerID int, debugID string)  {}

// =============================================================================
// SchedulerConfig: Configuration for FiberScheduler
// =============================================================================

// SchedulerConfig holds configuration options for FiberScheduler.
// All handlers are optional; if not provided, default implementations will
// be used.
type SchedulerConfig struct {
	// Name labels the scheduler in logs and metrics.
	Name string

	// PoolCapacity is the task-pool capacity; must be a power of two.
	// Defaults to DefaultPoolCapacity.
	PoolCapacity int

	// FiberStackSize is the stack region size for task fibers.
	// Defaults to DefaultFiberStackSize.
	FiberStackSize int

	// Priority selects the stable priority ready-queue instead of FIFO.
	Priority bool

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records scheduler metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to
	// DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// Instrumentation observes task transitions. Defaults to NilInstrumentation.
	Instrumentation TaskInstrumentation

	// Logger receives scheduler lifecycle logs. Defaults to NewZerologLogger.
	Logger Logger
}

const (
	DefaultPoolCapacity   = 1024
	DefaultFiberStackSize = 128 * 1024
)

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Name:                "fiber-scheduler",
		PoolCapacity:        DefaultPoolCapacity,
		FiberStackSize:      DefaultFiberStackSize,
		PanicHandler:        &DefaultPanicHandler{},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
		Instrumentation:     NilInstrumentation{},
		Logger:              NewZerologLogger(),
	}
}

func (c *SchedulerConfig) withDefaults() *SchedulerConfig {
	out := *DefaultSchedulerConfig()
	if c == nil {
		return &out
	}
	if c.Name != "" {
		out.Name = c.Name
	}
	if c.PoolCapacity != 0 {
		out.PoolCapacity = c.PoolCapacity
	}
	if c.FiberStackSize != 0 {
		out.FiberStackSize = c.FiberStackSize
	}
	out.Priority = c.Priority
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.RejectedTaskHandler != nil {
		out.RejectedTaskHandler = c.RejectedTaskHandler
	}
	if c.Instrumentation != nil {
		out.Instrumentation = c.Instrumentation
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	return &out
}
