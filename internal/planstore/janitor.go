package planstore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule is the cron spec of the sweep job.
const DefaultJanitorSchedule = "@every 5m"

// Janitor periodically drops plans for keys nobody removed.
type Janitor struct {
	cron     *cron.Cron
	store    *Store
	maxAge   time.Duration
	schedule string
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
}

// NewJanitor creates a janitor sweeping plans older than maxAge.
func NewJanitor(store *Store, schedule string, maxAge time.Duration, logger *slog.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		cron:     cron.New(),
		store:    store,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}
	id, err := j.cron.AddFunc(j.schedule, j.Sweep)
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}
	j.entry = id
	j.cron.Start()
	j.running = true
	j.logger.Info("plan janitor started", "schedule", j.schedule, "max_age", j.maxAge)
	return nil
}

// Stop stops the cron scheduler and waits for a running sweep.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.cron.Remove(j.entry)
	j.running = false
	j.logger.Info("plan janitor stopped")
}

// Running reports whether the janitor is started.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Sweep runs one sweep immediately.
func (j *Janitor) Sweep() {
	if n := j.store.Sweep(j.maxAge); n > 0 {
		j.logger.Info("stale execution plans swept", "keys", n, "remaining", j.store.Keys())
	}
}
