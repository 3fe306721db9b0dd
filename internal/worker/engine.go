package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tsurugroups/wa-platform/internal/core"
	"github.com/tsurugroups/wa-platform/internal/jobs"
	"github.com/tsurugroups/wa-platform/internal/metrics"
)

type Options struct {
	Concurrency     int           // number of job goroutines
	PollTimeout     time.Duration // BRPOP block window
	QueueBackoffMin time.Duration
	QueueBackoffMax time.Duration
	GatewayQPS      float64 // sustained gateway rate
	GatewayBurst    int     // burst to allow short spikes
	JobTimeout      time.Duration
}

// Run consumes sync jobs from the queue until ctx is done. Claims are
// single-consumer-per-job by construction (BRPOP pops exactly once); retry
// and completion tracking stay with whoever enqueued.
func Run(ctx context.Context, rec *core.Reconciler, q *jobs.Queue, opt Options) error {
	// Rate limiter for the gateway (global for this worker process).
	limiter := rate.NewLimiter(rate.Limit(opt.GatewayQPS), opt.GatewayBurst)

	// Fixed-size worker pool.
	work := make(chan jobs.Job, opt.Concurrency*2)
	var wg sync.WaitGroup
	wg.Add(opt.Concurrency)
	for i := 0; i < opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-work:
					runOne(ctx, rec, limiter, j, opt.JobTimeout)
				}
			}
		}()
	}

	// Claim loop: backoff on queue errors (exponential + jitter).
	backoff := opt.QueueBackoffMin
	for {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return ctx.Err()
		default:
		}

		j, err := q.Dequeue(ctx, opt.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				close(work)
				wg.Wait()
				return ctx.Err()
			}
			sleep := jitter(backoff, 0.20)
			logrus.WithField("error", err.Error()).Warnf("queue claim error; backing off %s", sleep)
			time.Sleep(sleep)
			backoff = minDur(opt.QueueBackoffMax, time.Duration(float64(backoff)*1.6))
			continue
		}
		backoff = opt.QueueBackoffMin // reset on success

		if depth, err := q.Depth(ctx); err == nil {
			metrics.QueueDepth.Set(float64(depth))
		}
		if j == nil {
			continue
		}

		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return ctx.Err()
		case work <- *j:
		}
	}
}

func runOne(ctx context.Context, rec *core.Reconciler, limiter *rate.Limiter, j jobs.Job, timeout time.Duration) {
	metrics.WorkerInFlight.Inc()
	defer metrics.WorkerInFlight.Dec()

	log := logrus.WithFields(logrus.Fields{"job": j.Name, "job_id": j.ID, "instance_id": j.Arg})

	// Respect the gateway rate limit (global in this process).
	if err := limiter.Wait(ctx); err != nil {
		// context canceled → exit handler
		return
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	in, err := rec.Store.GetInstance(cctx, j.Arg)
	if err != nil {
		log.WithField("error", err.Error()).Warn("job references missing instance")
		metrics.JobsProcessed.WithLabelValues(j.Name, "error").Inc()
		return
	}

	switch j.Name {
	case jobs.JobSyncGroups:
		n, err := rec.SyncGroups(cctx, in)
		finish(log, j.Name, n, err)
	case jobs.JobSyncContacts:
		n, err := rec.SyncContacts(cctx, in)
		finish(log, j.Name, n, err)
	case jobs.JobSyncStatus:
		_, err := rec.SyncStatus(cctx, in)
		finish(log, j.Name, 0, err)
	default:
		// Campaign dispatch and anything else belongs to other consumers.
		log.Warn("unknown job name, dropping")
		metrics.JobsProcessed.WithLabelValues(j.Name, "unknown").Inc()
	}
}

func finish(log *logrus.Entry, name string, count int, err error) {
	if err != nil {
		log.WithField("error", err.Error()).Warn("job failed")
		metrics.JobsProcessed.WithLabelValues(name, "error").Inc()
		return
	}
	log.WithField("count", count).Info("job done")
	metrics.JobsProcessed.WithLabelValues(name, "ok").Inc()
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := int64(float64(d) * frac)
	if delta <= 0 {
		return d
	}
	// random in [-delta, +delta]
	n := rand.Int63n(2*delta+1) - delta
	return d + time.Duration(n)
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
