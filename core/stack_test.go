//go:build unix

package core

import "testing"

func TestAllocStack_BoundsAndAlignment(t *testing.T) {
	desc, err := AllocStack(MinStackSize)
	if err != nil {
		t.Fatalf("AllocStack: %v", err)
	}
	defer func() {
		if err := FreeStack(&desc); err != nil {
			t.Errorf("FreeStack: %v", err)
		}
	}()

	if !desc.IsValid() {
		t.Fatal("descriptor invalid after AllocStack")
	}
	if desc.StackSize() < MinStackSize {
		t.Errorf("usable size = %d, want >= %d", desc.StackSize(), MinStackSize)
	}
	if desc.StackBottom() >= desc.StackTop() {
		t.Errorf("bounds inverted: bottom %#x, top %#x", desc.StackBottom(), desc.StackTop())
	}
	if desc.StackBottom()%4096 != 0 {
		t.Errorf("bottom %#x is not page aligned", desc.StackBottom())
	}
}

func TestAllocStack_RejectsBelowMinimum(t *testing.T) {
	if _, err := AllocStack(MinStackSize - 1); err == nil {
		t.Error("AllocStack below minimum succeeded")
	}
}

func TestFreeStack_Invalidates(t *testing.T) {
	desc, err := AllocStack(MinStackSize)
	if err != nil {
		t.Fatalf("AllocStack: %v", err)
	}

	if err := FreeStack(&desc); err != nil {
		t.Fatalf("FreeStack: %v", err)
	}
	if desc.IsValid() {
		t.Error("descriptor still valid after FreeStack")
	}

	// Double free is a no-op.
	if err := FreeStack(&desc); err != nil {
		t.Errorf("second FreeStack: %v", err)
	}
}

func TestThread_IdentityAndStack(t *testing.T) {
	var thread Thread
	ready := make(chan bool, 1)

	thread.Start(MinStackSize, func(userData any) {
		th := userData.(*Thread)
		ready <- th.IsCurrentThread()
	}, &thread)

	if onThread := <-ready; !onThread {
		t.Error("IsCurrentThread() = false on the thread itself")
	}
	if got := thread.GetStackSize(); got < MinStackSize {
		t.Errorf("GetStackSize() = %d, want >= %d", got, MinStackSize)
	}
	thread.Stop()

	if thread.IsCurrentThread() {
		t.Error("IsCurrentThread() = true off the thread")
	}
}

func TestParseGoroutineID(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"goroutine 123 [running]:\n", 123},
		{"goroutine 1 [running]:", 1},
		{"garbage", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseGoroutineID([]byte(c.in)); got != c.want {
			t.Errorf("parseGoroutineID(%q) = %d, want %d", c.in, got, c.want)
		}
	}

	if got := currentGoroutineID(); got <= 0 {
		t.Errorf("currentGoroutineID() = %d, want > 0", got)
	}
}
