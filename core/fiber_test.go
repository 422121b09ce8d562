package core

import "testing"

const testStackSize = 32 * 1024

// TestFiber_RoundTrip verifies cooperative switching between a
// thread-derived main fiber and a child fiber
// Given: Main fiber M on a worker thread, child fiber C with a counter entry
// When: Control ping-pongs M → C → M → C → M
// Then: The counter observes 0,1,2,3 in lockstep and ends at 3
func TestFiber_RoundTrip(t *testing.T) {
	var counter Int32
	var fiberMain Fiber

	done := make(chan struct{})

	var thread Thread
	thread.Start(testStackSize, func(userData any) {
		defer close(done)
		th := userData.(*Thread)

		fiberMain.CreateFromThread(th)

		var fiber1 Fiber
		fiberEntry := func(userData any) {
			self := userData.(*Fiber)

			if got := counter.Load(); got != 0 {
				t.Errorf("entry observed counter %d, want 0", got)
			}
			counter.IncFetch()
			SwitchTo(self, &fiberMain)

			if got := counter.Load(); got != 2 {
				t.Errorf("resumed entry observed counter %d, want 2", got)
			}
			counter.IncFetch()
			SwitchTo(self, &fiberMain)
		}
		fiber1.Create(testStackSize, fiberEntry, &fiber1)

		SwitchTo(&fiberMain, &fiber1)

		if got := counter.Load(); got != 1 {
			t.Errorf("main observed counter %d, want 1", got)
		}
		counter.IncFetch()

		SwitchTo(&fiberMain, &fiber1)

		if got := counter.Load(); got != 3 {
			t.Errorf("main observed counter %d, want 3", got)
		}
	}, &thread)

	<-done
	thread.Stop()

	if got := counter.Load(); got != 3 {
		t.Errorf("terminal counter = %d, want 3", got)
	}
}

func TestFiber_CreateRejectsSmallStack(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Create with a tiny stack did not panic")
		}
	}()

	var fiber Fiber
	fiber.Create(1024, func(any) {}, nil)
}

func TestFiber_CreateFromThreadRejectsWrongThread(t *testing.T) {
	var thread Thread
	ready := make(chan struct{})
	release := make(chan struct{})
	thread.Start(testStackSize, func(any) {
		close(ready)
		<-release
	}, nil)
	<-ready

	defer func() {
		close(release)
		thread.Stop()
		if recover() == nil {
			t.Error("CreateFromThread off-thread did not panic")
		}
	}()

	var fiber Fiber
	fiber.CreateFromThread(&thread)
}

func TestFiber_DoubleCreatePanics(t *testing.T) {
	var fiber Fiber
	// the entry never runs; this fiber is never resumed
	fiber.Create(testStackSize, func(any) {}, nil)
	defer fiber.Destroy()

	defer func() {
		if recover() == nil {
			t.Error("second Create did not panic")
		}
	}()
	fiber.Create(testStackSize, func(any) {}, nil)
}

func TestFiber_SwitchToUninitializedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SwitchTo with uninitialized fibers did not panic")
		}
	}()

	var a, b Fiber
	SwitchTo(&a, &b)
}

// TestFiber_CrossThreadResumption verifies that a fiber suspended on one
// worker can be resumed by a different worker with its stack intact.
func TestFiber_CrossThreadResumption(t *testing.T) {
	var child Fiber
	var observed [2]int32

	// The child records a stack-local value across a suspension that
	// migrates between two worker threads.
	handoff := make(chan *Fiber, 1) // main fiber of whichever worker resumes

	childEntry := func(userData any) {
		self := userData.(*Fiber)
		local := int32(41)

		resumer := <-handoff
		local++
		observed[0] = local
		SwitchTo(self, resumer)

		// resumed on the second worker; the local survived the migration
		resumer = <-handoff
		local++
		observed[1] = local
		SwitchTo(self, resumer)
	}
	child.Create(testStackSize, childEntry, &child)

	runWorker := func() {
		done := make(chan struct{})
		var thread Thread
		thread.Start(testStackSize, func(userData any) {
			defer close(done)
			th := userData.(*Thread)
			var main Fiber
			main.CreateFromThread(th)
			handoff <- &main
			SwitchTo(&main, &child)
		}, &thread)
		<-done
		thread.Stop()
	}

	runWorker()
	runWorker()

	if observed[0] != 42 || observed[1] != 43 {
		t.Errorf("observed = %v, want [42 43]", observed)
	}
}
