package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muj89/usdt-p2p-moniter/internal/logging"
)

// Job wraps a named task behind an idle/running gate. Firing while a
// previous run is still in flight is a no-op, so a hung run delays but
// never stacks subsequent ticks of the same job.
type Job struct {
	name    string
	run     func(context.Context)
	running atomic.Bool
}

// NewJob builds a gated job.
func NewJob(name string, run func(context.Context)) *Job {
	return &Job{name: name, run: run}
}

// Fire runs the job unless it is already running. Returns whether the
// run actually happened.
func (j *Job) Fire(ctx context.Context) bool {
	if !j.running.CompareAndSwap(false, true) {
		logging.Debugf("[sched] %s still running, tick skipped", j.name)
		return false
	}
	defer j.running.Store(false)
	j.run(ctx)
	return true
}

// Scheduler drives a small set of independently timed background
// jobs. Jobs overlap freely with each other; ticks of the same job
// are serialized by the job's own gate.
type Scheduler struct {
	wg sync.WaitGroup
}

// Every fires job immediately and then on each interval tick.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, job *Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		go job.Fire(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go job.Fire(ctx)
			}
		}
	}()
}

// HourlyOnTheHour fires job immediately and then at the top of every
// hour.
func (s *Scheduler) HourlyOnTheHour(ctx context.Context, job *Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		go job.Fire(ctx)

		timer := time.NewTimer(untilNextHour(time.Now()))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			go job.Fire(ctx)
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go job.Fire(ctx)
			}
		}
	}()
}

// Wait blocks until all scheduling loops have observed cancellation.
// In-flight runs finish on their own; they are not cancellable
// mid-flight beyond the context handed to them.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func untilNextHour(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return next.Sub(now)
}
