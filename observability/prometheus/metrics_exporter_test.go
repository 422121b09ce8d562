package prometheus

import (
	"testing"
	"time"

	"github.com/derkreature/TaskScheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("taskscheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("sched-a", core.TaskPriorityUserVisible, 250*time.Millisecond)
	exporter.RecordTaskPanic("sched-a", "panic")
	exporter.RecordQueueDepth("sched-a", 7)
	exporter.RecordTaskRejected("sched-a", "pool full")
	exporter.RecordFiberSwitch("sched-a", 3)
	exporter.RecordFiberSwitch("sched-a", 3)
	exporter.RecordPoolOccupancy("sched-a", 12)

	panicTotal := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("sched-a"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	queueDepth := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("sched-a"))
	if queueDepth != 7 {
		t.Fatalf("queue depth = %v, want 7", queueDepth)
	}

	rejected := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("sched-a", "pool full"))
	if rejected != 1 {
		t.Fatalf("rejected total = %v, want 1", rejected)
	}

	switches := testutil.ToFloat64(exporter.fiberSwitchTotal.WithLabelValues("sched-a", "3"))
	if switches != 2 {
		t.Fatalf("fiber switch total = %v, want 2", switches)
	}

	occupancy := testutil.ToFloat64(exporter.poolOccupancy.WithLabelValues("sched-a"))
	if occupancy != 12 {
		t.Fatalf("pool occupancy = %v, want 12", occupancy)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("sched-a", "user_visible"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("taskscheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("taskscheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("sched-a", nil)
	second.RecordTaskPanic("sched-a", nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("sched-a"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
