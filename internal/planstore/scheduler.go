package planstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// PoolScheduler runs delayed tasks on a bounded number of workers.
type PoolScheduler struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPoolScheduler creates a scheduler running at most workers tasks at once.
func NewPoolScheduler(workers int, logger *slog.Logger) *PoolScheduler {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PoolScheduler{sem: semaphore.NewWeighted(int64(workers)), logger: logger}
}

// Schedule runs task once after delay. A panicking task is logged.
func (p *PoolScheduler) Schedule(delay time.Duration, task func()) {
	p.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		p.run(task)
	})
}

func (p *PoolScheduler) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("scheduled task panic", "panic", fmt.Sprint(r))
		}
	}()
	task()
}

// Wait blocks until every scheduled task has run.
func (p *PoolScheduler) Wait() {
	p.wg.Wait()
}

var _ Scheduler = (*PoolScheduler)(nil)
