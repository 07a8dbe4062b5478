package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/monocle-dev/statuswatch/internal/lock"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/metrics"
	"github.com/monocle-dev/statuswatch/internal/retention"
)

const (
	checkLockKey = "cycle:check"
	sweepLockKey = "cycle:sweep"
)

type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (retention.Result, error)
}

// Runner guards cycles with a lock so overlapping runs are skipped, and optionally drives
// them from tickers.
type Runner struct {
	scheduler *Scheduler
	sweeper   Sweeper
	locker    lock.Locker
	lockTTL   time.Duration
	log       logger.Logger
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(s *Scheduler, sweeper Sweeper, locker lock.Locker, lockTTL time.Duration, log logger.Logger) *Runner {
	return &Runner{
		scheduler: s,
		sweeper:   sweeper,
		locker:    locker,
		lockTTL:   lockTTL,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunCheck runs one check cycle. It returns lock.ErrLocked when a cycle is already running.
func (r *Runner) RunCheck(ctx context.Context) (Summary, error) {
	release, err := r.acquire(ctx, checkLockKey, "check")
	if err != nil {
		return Summary{}, err
	}
	defer release()

	return r.scheduler.RunCycle(ctx, r.now())
}

// RunSweep runs one retention sweep. It returns lock.ErrLocked when a sweep is already running.
func (r *Runner) RunSweep(ctx context.Context) (retention.Result, error) {
	release, err := r.acquire(ctx, sweepLockKey, "sweep")
	if err != nil {
		return retention.Result{}, err
	}
	defer release()

	return r.sweeper.Sweep(ctx, r.now())
}

func (r *Runner) acquire(ctx context.Context, key, kind string) (lock.Release, error) {
	release, err := r.locker.Acquire(ctx, key, r.lockTTL)
	if errors.Is(err, lock.ErrLocked) {
		metrics.CyclesSkippedTotal.WithLabelValues(kind).Inc()
		r.log.Warn("cycle already running, skipping", "kind", kind)
	}
	return release, err
}

// Start runs check cycles every checkEvery and sweeps every sweepEvery until Stop.
func (r *Runner) Start(checkEvery, sweepEvery time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.log.Info("starting scheduler", "check_every", checkEvery, "sweep_every", sweepEvery)

	r.wg.Add(2)
	go r.loop(ctx, checkEvery, func(ctx context.Context) error {
		_, err := r.RunCheck(ctx)
		return err
	})
	go r.loop(ctx, sweepEvery, func(ctx context.Context) error {
		_, err := r.RunSweep(ctx)
		return err
	})
}

// Stop cancels the tickers and waits for in-flight cycles to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	r.log.Info("stopping scheduler")
	cancel()
	r.wg.Wait()
	r.log.Info("scheduler stopped")
}

func (r *Runner) loop(ctx context.Context, every time.Duration, run func(context.Context) error) {
	defer r.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil && !errors.Is(err, lock.ErrLocked) {
				r.log.Error("scheduled cycle failed", "error", err)
			}
		}
	}
}
