package metrics

import (
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// API
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests."},
		[]string{"handler", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms..~10s
		},
		[]string{"handler", "method"},
	)

	// Gateway
	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_calls_total", Help: "Outbound gateway call outcomes."},
		[]string{"op", "outcome"}, // ok | error
	)
	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Outbound gateway call latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms..~160s, media sends run long
		},
		[]string{"op"},
	)

	// Reconciliation
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_runs_total", Help: "Sync operation outcomes."},
		[]string{"op", "result"}, // groups|contacts|status, ok|error
	)
	SyncedEntities = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "synced_entities_total", Help: "Mirror rows upserted by sync."},
		[]string{"kind"}, // group | participant | contact
	)

	// Job queue
	JobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jobs_enqueued_total", Help: "Jobs handed to the queue."},
		[]string{"job"},
	)
	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jobs_processed_total", Help: "Worker job outcomes."},
		[]string{"job", "result"}, // ok | error | unknown
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "job_queue_depth", Help: "Jobs waiting in the queue."},
	)
	WorkerInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "worker_inflight", Help: "Jobs being processed in this process."},
	)
)

var registerOnce sync.Once

// Register default + our collectors. Safe to call from every router
// construction; registration happens once per process.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
			HTTPRequests, HTTPDuration,
			GatewayCalls, GatewayDuration,
			SyncRuns, SyncedEntities,
			JobsEnqueued, JobsProcessed, QueueDepth, WorkerInFlight,
		)
	})
}

// Export a tiny pgxpool stats exporter
type PGXPoolStats struct {
	pool *pgxpool.Pool

	conns          prometheus.Gauge
	idle           prometheus.Gauge
	acquireCount   prometheus.Counter
	acquireLatency prometheus.Counter
}

func NewPGXPoolStats(pool *pgxpool.Pool) *PGXPoolStats {
	m := &PGXPoolStats{
		pool: pool,
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_conns", Help: "Total connections in pool.",
		}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_idle_conns", Help: "Idle connections in pool.",
		}),
		acquireCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_pool_acquires_total", Help: "Total pool acquires.",
		}),
		acquireLatency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_pool_acquire_seconds_total", Help: "Sum of acquire latencies.",
		}),
	}
	prometheus.MustRegister(m.conns, m.idle, m.acquireCount, m.acquireLatency)

	return m
}

func (m *PGXPoolStats) Start(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	for {
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
			s := m.pool.Stat()
			m.conns.Set(float64(s.TotalConns()))
			m.idle.Set(float64(s.IdleConns()))
			m.acquireCount.Add(float64(s.AcquireCount()))
			m.acquireLatency.Add(s.AcquireDuration().Seconds())
		}
	}
}
