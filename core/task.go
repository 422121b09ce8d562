package core

// =============================================================================
// TaskDesc: per-task function pointers and user data
// =============================================================================

// TaskEntryFunc runs the task body. The execution context carries the
// fiber binding and the yield primitive; userData is the payload pointer
// published in the task's descriptor.
type TaskEntryFunc func(ec *ExecutionContext, userData any)

// TaskDestroyFunc releases the task payload after the scheduler retires the
// task. It runs at most once per pool slot generation.
type TaskDestroyFunc func(userData any)

// TaskDesc is the descriptor embedded in every pool slot: the entry and
// destroy functions plus the payload pointer they operate on. The function
// values are only valid while the owning slot's generation id is live.
type TaskDesc struct {
	Entry    TaskEntryFunc
	Destroy  TaskDestroyFunc
	UserData any

	// Diagnostic metadata, surfaced in execution records and traces.
	DebugID    string
	DebugColor uint32
}

// IsValid reports whether the descriptor carries a runnable entry.
func (d *TaskDesc) IsValid() bool {
	return d.Entry != nil
}

// TaskDebugInfo is implemented by payloads that want a stable diagnostic
// identity attached to their descriptor.
type TaskDebugInfo interface {
	DebugID() string
	DebugColor() uint32
}

// =============================================================================
// TaskTraits: task attributes (priority, blocking behavior, etc.)
// =============================================================================

type TaskPriority int

const (
	// TaskPriorityBestEffort: Lowest priority
	TaskPriorityBestEffort TaskPriority = iota

	// TaskPriorityUserVisible: Default priority
	TaskPriorityUserVisible

	// TaskPriorityUserBlocking: Highest priority.
	// `UserBlocking` means some caller is stalled until the task completes.
	TaskPriorityUserBlocking
)

// TaskTraits defines task attributes. Priority orders admission into the
// ready queue; it is a hint, not a guarantee of ordering between tasks.
type TaskTraits struct {
	Priority TaskPriority
	MayBlock bool
	Category string
}

func DefaultTaskTraits() TaskTraits {
	return TaskTraits{Priority: TaskPriorityUserVisible}
}

func TraitsUserBlocking() TaskTraits {
	return TaskTraits{Priority: TaskPriorityUserBlocking}
}

func TraitsBestEffort() TaskTraits {
	return TaskTraits{Priority: TaskPriorityBestEffort}
}

func TraitsUserVisible() TaskTraits {
	return TaskTraits{Priority: TaskPriorityUserVisible}
}
