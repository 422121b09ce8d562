package core

import "testing"

func item(priority TaskPriority) RunItem {
	return RunItem{Traits: TaskTraits{Priority: priority}}
}

// TestPriorityRunQueue_Stability verifies priority-based ordering
// Given: A priority queue with mixed-priority items
// When: Items are popped from the queue
// Then: Items leave in priority order (UserBlocking > UserVisible > BestEffort) with FIFO for same priority
func TestPriorityRunQueue_Stability(t *testing.T) {
	q := NewPriorityRunQueue()

	q.Push(item(TaskPriorityBestEffort))   // Low Priority 1
	q.Push(item(TaskPriorityUserBlocking)) // High Priority 1
	q.Push(item(TaskPriorityBestEffort))   // Low Priority 2
	q.Push(item(TaskPriorityUserBlocking)) // High Priority 2
	q.Push(item(TaskPriorityUserVisible))  // Medium Priority

	expectedPriorities := []TaskPriority{
		TaskPriorityUserBlocking,
		TaskPriorityUserBlocking,
		TaskPriorityUserVisible,
		TaskPriorityBestEffort,
		TaskPriorityBestEffort,
	}

	for i, expectedPriority := range expectedPriorities {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Step %d: queue is empty, want priority %d", i, expectedPriority)
		}
		if got.Traits.Priority != expectedPriority {
			t.Errorf("Step %d: priority = %d, want %d", i, got.Traits.Priority, expectedPriority)
		}
	}
}

// TestPriorityRunQueue_PopUpTo verifies batch retrieval by priority
func TestPriorityRunQueue_PopUpTo(t *testing.T) {
	q := NewPriorityRunQueue()

	q.Push(item(TaskPriorityBestEffort))
	q.Push(item(TaskPriorityUserBlocking))
	q.Push(item(TaskPriorityBestEffort))
	q.Push(item(TaskPriorityUserVisible))
	q.Push(item(TaskPriorityUserBlocking))

	batch := q.PopUpTo(3)

	if len(batch) != 3 {
		t.Errorf("len(batch) = %d, want 3", len(batch))
	}
	if batch[0].Traits.Priority != TaskPriorityUserBlocking {
		t.Errorf("batch[0].Priority = %d, want %d", batch[0].Traits.Priority, TaskPriorityUserBlocking)
	}
	if batch[1].Traits.Priority != TaskPriorityUserBlocking {
		t.Errorf("batch[1].Priority = %d, want %d", batch[1].Traits.Priority, TaskPriorityUserBlocking)
	}
	if batch[2].Traits.Priority != TaskPriorityUserVisible {
		t.Errorf("batch[2].Priority = %d, want %d", batch[2].Traits.Priority, TaskPriorityUserVisible)
	}

	if q.Len() != 2 {
		t.Errorf("q.Len() = %d, want 2", q.Len())
	}
}

func TestPriorityRunQueue_PeekTraits(t *testing.T) {
	q := NewPriorityRunQueue()

	_, ok := q.PeekTraits()
	if ok {
		t.Error("PeekTraits() on empty queue = true, want false")
	}

	q.Push(item(TaskPriorityUserBlocking))

	traits, ok := q.PeekTraits()
	if !ok {
		t.Fatal("PeekTraits() on non-empty queue = false, want true")
	}
	if traits.Priority != TaskPriorityUserBlocking {
		t.Errorf("PeekTraits().Priority = %d, want %d", traits.Priority, TaskPriorityUserBlocking)
	}

	if q.Len() != 1 {
		t.Errorf("q.Len() after Peek = %d, want 1", q.Len())
	}
}

func TestFIFORunQueue_Order(t *testing.T) {
	q := NewFIFORunQueue()

	// FIFO ignores priority entirely
	q.Push(item(TaskPriorityBestEffort))
	q.Push(item(TaskPriorityUserBlocking))
	q.Push(item(TaskPriorityUserVisible))

	expected := []TaskPriority{
		TaskPriorityBestEffort,
		TaskPriorityUserBlocking,
		TaskPriorityUserVisible,
	}
	for i, want := range expected {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Step %d: queue empty", i)
		}
		if got.Traits.Priority != want {
			t.Errorf("Step %d: priority = %d, want %d", i, got.Traits.Priority, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop on drained queue = true, want false")
	}
}

func TestFIFORunQueue_PopUpToAndClear(t *testing.T) {
	q := NewFIFORunQueue()

	for i := 0; i < 5; i++ {
		q.Push(item(TaskPriorityUserVisible))
	}

	batch := q.PopUpTo(3)
	if len(batch) != 3 {
		t.Errorf("len(batch) = %d, want 3", len(batch))
	}
	if q.Len() != 2 {
		t.Errorf("q.Len() = %d, want 2", q.Len())
	}

	q.Clear()
	if !q.IsEmpty() {
		t.Error("queue not empty after Clear")
	}
}

func TestFIFORunQueue_CompactionPreservesOrder(t *testing.T) {
	q := NewFIFORunQueue()

	// Grow past the compaction threshold, then drain low so compaction
	// triggers.
	for i := 0; i < compactMinCap*2; i++ {
		q.Push(RunItem{Traits: TaskTraits{Category: "x"}})
	}
	for i := 0; i < compactMinCap*2-4; i++ {
		q.Pop()
	}
	q.MaybeCompact()

	if q.Len() != 4 {
		t.Errorf("q.Len() after compaction = %d, want 4", q.Len())
	}
	for i := 0; i < 4; i++ {
		if _, ok := q.Pop(); !ok {
			t.Fatalf("item %d lost by compaction", i)
		}
	}
}
