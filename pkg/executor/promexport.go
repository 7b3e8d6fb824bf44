package executor

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// StatsProvider is satisfied by *Executor; split out so PrometheusExporter
// can be tested against a fake.
type StatsProvider interface {
	Stats() Stats
}

// PrometheusExporter periodically snapshots a StatsProvider's Stats()
// into Prometheus gauges, grounded on Swind-go-task-runner's
// SnapshotPoller: one gauge per field, polled on a fixed interval rather
// than wired as live collectors, so a slow Prometheus scrape never blocks
// the control loop.
type PrometheusExporter struct {
	interval time.Duration
	provider StatsProvider

	totalQueued         prom.Gauge
	totalExecuted       prom.Gauge
	tasksQueued         prom.Gauge
	deferredTasksQueued prom.Gauge
	threadsInUse        prom.Gauge
	timeRunningMicros   prom.Gauge
	timeExecutingMicros prom.Gauge
	timeQueuedMicros    prom.Gauge
	threadsRunning      prom.Gauge
	threadsPending      prom.Gauge

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPrometheusExporter builds an exporter for provider's Stats(),
// registering its gauges under the serviceExecutorTaskStats namespace. A
// nil registerer uses prom.DefaultRegisterer; a non-positive interval
// defaults to one second.
func NewPrometheusExporter(reg prom.Registerer, provider StatsProvider, interval time.Duration) (*PrometheusExporter, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) (prom.Gauge, error) {
		g := prom.NewGauge(prom.GaugeOpts{
			Namespace: statsSinkName,
			Name:      name,
			Help:      help,
		})
		if err := reg.Register(g); err != nil {
			if already, ok := err.(prom.AlreadyRegisteredError); ok {
				return already.ExistingCollector.(prom.Gauge), nil
			}
			return nil, err
		}
		return g, nil
	}

	e := &PrometheusExporter{interval: interval, provider: provider}

	var err error
	if e.totalQueued, err = gauge("total_queued", "Total tasks ever queued."); err != nil {
		return nil, err
	}
	if e.totalExecuted, err = gauge("total_executed", "Total tasks ever executed."); err != nil {
		return nil, err
	}
	if e.tasksQueued, err = gauge("tasks_queued", "Tasks currently queued."); err != nil {
		return nil, err
	}
	if e.deferredTasksQueued, err = gauge("deferred_tasks_queued", "Deferred tasks currently queued."); err != nil {
		return nil, err
	}
	if e.threadsInUse, err = gauge("threads_in_use", "Worker threads currently inside a user task."); err != nil {
		return nil, err
	}
	if e.timeRunningMicros, err = gauge("total_time_running_micros", "Aggregate microseconds spent inside reactor run calls."); err != nil {
		return nil, err
	}
	if e.timeExecutingMicros, err = gauge("total_time_executing_micros", "Aggregate microseconds spent inside user tasks."); err != nil {
		return nil, err
	}
	if e.timeQueuedMicros, err = gauge("total_time_queued_micros", "Aggregate microseconds tasks spent queued between Schedule and the start of their execution."); err != nil {
		return nil, err
	}
	if e.threadsRunning, err = gauge("threads_running", "Live worker thread count."); err != nil {
		return nil, err
	}
	if e.threadsPending, err = gauge("threads_pending", "Worker threads not yet past their first run-interval."); err != nil {
		return nil, err
	}

	return e, nil
}

// Start begins periodic polling; repeated calls are no-ops.
func (e *PrometheusExporter) Start(ctx context.Context) {
	e.stateMu.Lock()
	if e.running {
		e.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	e.stateMu.Unlock()

	go e.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (e *PrometheusExporter) Stop() {
	e.stateMu.Lock()
	if !e.running {
		e.stateMu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.stateMu.Unlock()

	cancel()
	<-done

	e.stateMu.Lock()
	e.running = false
	e.cancel = nil
	e.done = nil
	e.stateMu.Unlock()
}

func (e *PrometheusExporter) loop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.collectOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.collectOnce()
		}
	}
}

func (e *PrometheusExporter) collectOnce() {
	s := e.provider.Stats()
	e.totalQueued.Set(float64(s.TotalQueued))
	e.totalExecuted.Set(float64(s.TotalExecuted))
	e.tasksQueued.Set(float64(s.TasksQueued))
	e.deferredTasksQueued.Set(float64(s.DeferredTasksQueued))
	e.threadsInUse.Set(float64(s.ThreadsInUse))
	e.timeRunningMicros.Set(float64(s.TotalTimeRunningMicros))
	e.timeExecutingMicros.Set(float64(s.TotalTimeExecutingMicros))
	e.timeQueuedMicros.Set(float64(s.TotalTimeQueuedMicros))
	e.threadsRunning.Set(float64(s.ThreadsRunning))
	e.threadsPending.Set(float64(s.ThreadsPending))
}
