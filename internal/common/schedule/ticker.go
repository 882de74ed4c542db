package schedule

import (
	"context"
	"sync"
	"time"

	"contact-sync/internal/common/logger"
)

// Job is one scheduled invocation.
type Job func(ctx context.Context)

// Ticker invokes a job at a fixed interval, starting immediately.
// Every tick starts its own goroutine, so a slow invocation does not delay the next one.
type Ticker struct {
	interval time.Duration
	job      Job
	logger   logger.Logger
	wg       sync.WaitGroup
}

func NewTicker(interval time.Duration, job Job, log logger.Logger) *Ticker {
	return &Ticker{
		interval: interval,
		job:      job,
		logger:   log,
	}
}

// Run blocks until ctx is done, then waits for in-flight invocations to return.
func (t *Ticker) Run(ctx context.Context) {
	t.logger.Info("Scheduler started", map[string]interface{}{
		"interval": t.interval.String(),
	})

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Scheduler stopping, waiting for in-flight runs", nil)
			t.wg.Wait()
			return
		case <-ticker.C:
			t.fire(ctx)
		}
	}
}

func (t *Ticker) fire(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.job(ctx)
	}()
}
