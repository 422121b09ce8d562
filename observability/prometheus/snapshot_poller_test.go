package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/derkreature/TaskScheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeProvider struct {
	stats core.SchedulerStats
}

func (f *fakeProvider) Stats() core.SchedulerStats {
	return f.stats
}

func TestSnapshotPoller_CollectsProviderStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	provider := &fakeProvider{stats: core.SchedulerStats{
		Name:          "sched-a",
		Workers:       4,
		Queued:        9,
		Active:        2,
		Delayed:       1,
		PoolOccupied:  11,
		PoolCapacity:  1024,
		FiberSwitches: 37,
		Running:       true,
	}}
	poller.AddScheduler("sched-a", provider)

	poller.Start(context.Background())
	defer poller.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(poller.queued.WithLabelValues("sched-a")) == 9 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := testutil.ToFloat64(poller.queued.WithLabelValues("sched-a")); got != 9 {
		t.Errorf("queued gauge = %v, want 9", got)
	}
	if got := testutil.ToFloat64(poller.active.WithLabelValues("sched-a")); got != 2 {
		t.Errorf("active gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.poolOccupied.WithLabelValues("sched-a")); got != 11 {
		t.Errorf("pool occupied gauge = %v, want 11", got)
	}
	if got := testutil.ToFloat64(poller.poolCapacity.WithLabelValues("sched-a")); got != 1024 {
		t.Errorf("pool capacity gauge = %v, want 1024", got)
	}
	if got := testutil.ToFloat64(poller.fiberSwitches.WithLabelValues("sched-a")); got != 37 {
		t.Errorf("fiber switches gauge = %v, want 37", got)
	}
	if got := testutil.ToFloat64(poller.running.WithLabelValues("sched-a")); got != 1 {
		t.Errorf("running gauge = %v, want 1", got)
	}
}

func TestSnapshotPoller_StartStopIdempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.Start(context.Background())
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()
}
