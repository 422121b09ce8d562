package core

import "time"

// TaskExecutionRecord captures a completed task execution.
type TaskExecutionRecord struct {
	DebugID       string
	SchedulerName string
	Priority      TaskPriority
	StartedAt     time.Time
	FinishedAt    time.Time
	Duration      time.Duration
	FiberSwitches int
	Panicked      bool
}

// SchedulerStats represents runtime observability state for a scheduler.
type SchedulerStats struct {
	Name          string
	Workers       int
	Queued        int
	Active        int
	Delayed       int
	PoolOccupied  int
	PoolCapacity  int
	FiberSwitches int64
	Running       bool
}
