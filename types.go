package taskscheduler

import "github.com/derkreature/TaskScheduler/core"

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the taskscheduler package for most use
// cases.

// Task is the unit of work posted to a scheduler
type Task = core.Task

// ExecutionContext is handed to a running task; it carries Yield
type ExecutionContext = core.ExecutionContext

// TaskTraits defines task attributes (priority, blocking behavior, etc.)
type TaskTraits = core.TaskTraits

// TaskPriority defines the priority levels for tasks
type TaskPriority = core.TaskPriority

// TaskHandle is a generation-checked weak reference into the task pool
type TaskHandle = core.TaskHandle

// Fiber is a cooperative execution context with its own stack
type Fiber = core.Fiber

// SchedulerConfig configures a FiberScheduler
type SchedulerConfig = core.SchedulerConfig

// SchedulerStats is a snapshot of scheduler counters
type SchedulerStats = core.SchedulerStats

// Priority constants
const (
	TaskPriorityBestEffort   TaskPriority = core.TaskPriorityBestEffort
	TaskPriorityUserVisible  TaskPriority = core.TaskPriorityUserVisible
	TaskPriorityUserBlocking TaskPriority = core.TaskPriorityUserBlocking
)

// Convenience functions for creating TaskTraits
var (
	DefaultTaskTraits  = core.DefaultTaskTraits
	TraitsUserBlocking = core.TraitsUserBlocking
	TraitsBestEffort   = core.TraitsBestEffort
	TraitsUserVisible  = core.TraitsUserVisible
)
