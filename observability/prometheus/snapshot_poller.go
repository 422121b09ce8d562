package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/derkreature/TaskScheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// Implemented by taskscheduler.FiberWorkerPool.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	providersMu sync.RWMutex
	providers   map[string]SchedulerSnapshotProvider

	queued        *prom.GaugeVec
	active        *prom.GaugeVec
	delayed       *prom.GaugeVec
	workers       *prom.GaugeVec
	poolOccupied  *prom.GaugeVec
	poolCapacity  *prom.GaugeVec
	fiberSwitches *prom.GaugeVec
	running       *prom.GaugeVec

	stateMu sync.Mutex
	polling bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	const ns = "taskscheduler"
	queued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_queued",
		Help:      "Ready-queue depth per scheduler.",
	}, []string{"scheduler"})
	active := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_active",
		Help:      "Tasks executing on a worker per scheduler.",
	}, []string{"scheduler"})
	delayed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_delayed",
		Help:      "Delayed tasks per scheduler.",
	}, []string{"scheduler"})
	workers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_workers",
		Help:      "Worker count per scheduler.",
	}, []string{"scheduler"})
	poolOccupied := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_pool_occupied",
		Help:      "Live task-pool slots per scheduler.",
	}, []string{"scheduler"})
	poolCapacity := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_pool_capacity",
		Help:      "Task-pool capacity per scheduler.",
	}, []string{"scheduler"})
	fiberSwitches := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_fiber_switches",
		Help:      "Cumulative fiber switches snapshot per scheduler.",
	}, []string{"scheduler"})
	running := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: ns,
		Name:      "scheduler_running",
		Help:      "Scheduler running state (1=running, 0=stopped).",
	}, []string{"scheduler"})

	var err error
	if queued, err = registerCollector(reg, queued); err != nil {
		return nil, err
	}
	if active, err = registerCollector(reg, active); err != nil {
		return nil, err
	}
	if delayed, err = registerCollector(reg, delayed); err != nil {
		return nil, err
	}
	if workers, err = registerCollector(reg, workers); err != nil {
		return nil, err
	}
	if poolOccupied, err = registerCollector(reg, poolOccupied); err != nil {
		return nil, err
	}
	if poolCapacity, err = registerCollector(reg, poolCapacity); err != nil {
		return nil, err
	}
	if fiberSwitches, err = registerCollector(reg, fiberSwitches); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:      interval,
		providers:     make(map[string]SchedulerSnapshotProvider),
		queued:        queued,
		active:        active,
		delayed:       delayed,
		workers:       workers,
		poolOccupied:  poolOccupied,
		poolCapacity:  poolCapacity,
		fiberSwitches: fiberSwitches,
		running:       running,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.providersMu.Lock()
	p.providers[name] = provider
	p.providersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.polling {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.polling = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.polling {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.polling = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.providersMu.RLock()
	defer p.providersMu.RUnlock()

	for name, provider := range p.providers {
		stats := provider.Stats()
		p.queued.WithLabelValues(name).Set(float64(stats.Queued))
		p.active.WithLabelValues(name).Set(float64(stats.Active))
		p.delayed.WithLabelValues(name).Set(float64(stats.Delayed))
		p.workers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolOccupied.WithLabelValues(name).Set(float64(stats.PoolOccupied))
		p.poolCapacity.WithLabelValues(name).Set(float64(stats.PoolCapacity))
		p.fiberSwitches.WithLabelValues(name).Set(float64(stats.FiberSwitches))
		if stats.Running {
			p.running.WithLabelValues(name).Set(1)
		} else {
			p.running.WithLabelValues(name).Set(0)
		}
	}
}
