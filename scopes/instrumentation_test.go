package scopes

import "testing"

func TestProfiler_RecordsTaskSlices(t *testing.T) {
	p := NewProfiler(1, 16, nil)

	// start / suspend / resume / finish produces two slices of one task
	p.OnTaskStart(0, "loadLevel")
	p.OnTaskSuspend(0, "loadLevel")
	p.OnTaskResume(0, "loadLevel")
	p.OnTaskFinish(0, "loadLevel")

	records := p.Drain(0)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for i, rec := range records {
		if rec.Name != "loadLevel" {
			t.Errorf("record %d name = %q, want loadLevel", i, rec.Name)
		}
		if rec.LeftAt.Before(rec.EnteredAt) {
			t.Errorf("record %d left before it was entered", i)
		}
	}

	if got := p.Drain(0); len(got) != 0 {
		t.Errorf("second drain = %d records, want 0", len(got))
	}
}

func TestProfiler_InternsOneDescriptorPerSite(t *testing.T) {
	p := NewProfiler(2, 16, nil)

	p.OnTaskStart(0, "loadMesh")
	p.OnTaskFinish(0, "loadMesh")
	p.OnTaskStart(1, "loadMesh")
	p.OnTaskFinish(1, "loadMesh")

	if got := p.Storage().Count(); got != 1 {
		t.Errorf("interned descriptors = %d, want 1", got)
	}
}

func TestProfiler_OutOfRangeWorkerIsIgnored(t *testing.T) {
	p := NewProfiler(1, 4, nil)

	p.OnTaskStart(5, "x")
	p.OnTaskFinish(5, "x")

	if got := len(p.Drain(0)); got != 0 {
		t.Errorf("records = %d, want 0", got)
	}
}

func TestLabelTracker_CurrentFollowsNesting(t *testing.T) {
	lt := NewLabelTracker(1, 4)

	if got := lt.Current(0); got != "" {
		t.Errorf("Current on empty tracker = %q, want empty", got)
	}

	lt.Push(0, 1, "levels/e1m1")
	lt.Push(0, 2, "meshes/rocket.mesh")
	if got := lt.Current(0); got != "meshes/rocket.mesh" {
		t.Errorf("Current = %q, want meshes/rocket.mesh", got)
	}

	lt.Pop(0)
	if got := lt.Current(0); got != "levels/e1m1" {
		t.Errorf("Current after pop = %q, want levels/e1m1", got)
	}
	lt.Pop(0)
}

func TestLabelTracker_Overflow(t *testing.T) {
	lt := NewLabelTracker(1, 1)

	if !lt.Push(0, 1, "a") {
		t.Fatal("first push failed")
	}
	if lt.Push(0, 2, "b") {
		t.Error("push beyond capacity succeeded")
	}
}
