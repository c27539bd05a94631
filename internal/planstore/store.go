// Package planstore keeps EXPLAIN ANALYZE results per request key.
//
// Plans are appended under a store-wide mutex by copy-on-write so readers
// never block. Removal is delayed by a grace period and runs on an
// injected Scheduler. An eviction only drops the plans recorded before the
// removal was requested.
package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultEvictionDelay is how long removed plans stay readable.
const DefaultEvictionDelay = 3 * time.Second

// Analyzer returns the raw JSON plan document for a statement.
type Analyzer interface {
	Explain(ctx context.Context, sql string, args ...any) ([]byte, error)
}

// Scheduler runs a task once after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, task func())
}

// ExecutionPlan is one analyzed execution of a statement. Times are in
// milliseconds rounded to 3 decimals.
type ExecutionPlan struct {
	Query         string         `json:"query"`
	Plan          map[string]any `json:"plan"`
	ExecutionTime float64        `json:"executionTime"`
	PlanningTime  float64        `json:"planningTime"`
	TimeInMillis  float64        `json:"timeInMillis"`
	Error         string         `json:"error,omitempty"`
	RecordedAt    time.Time      `json:"recordedAt"`
}

// entry is immutable once stored. seqs[i] is the store sequence of plans[i].
type entry struct {
	plans   []ExecutionPlan
	seqs    []uint64
	updated time.Time
}

// Store is an in-memory, key-scoped history of execution plans.
type Store struct {
	analyzer  Analyzer
	scheduler Scheduler
	logger    *slog.Logger
	delay     time.Duration
	now       func() time.Time

	mu      sync.Mutex // serializes read-modify-write of entries and seq
	seq     uint64     // sequence of the last recorded plan
	entries sync.Map   // key → entry
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithEvictionDelay sets the grace period between removal and eviction.
func WithEvictionDelay(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithClock sets the time source used for RecordedAt and Sweep.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store.
func New(analyzer Analyzer, scheduler Scheduler, opts ...Option) *Store {
	s := &Store{
		analyzer:  analyzer,
		scheduler: scheduler,
		logger:    slog.Default(),
		delay:     DefaultEvictionDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddExecutionPlan analyzes sql and appends the result under key. Analyzer
// failures are recorded as a plan carrying the error; they are logged and
// never returned.
func (s *Store) AddExecutionPlan(ctx context.Context, key, sql string, args ...any) {
	plan := ExecutionPlan{Query: sql}

	raw, err := s.analyzer.Explain(ctx, sql, args...)
	if err == nil {
		err = plan.parse(raw)
	}
	if err != nil {
		s.logger.Warn("explain analyze failed", "key", key, "error", err)
		plan = degenerate(sql, err)
	}
	plan.RecordedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		plans []ExecutionPlan
		seqs  []uint64
	)
	if v, ok := s.entries.Load(key); ok {
		prev := v.(entry)
		plans = make([]ExecutionPlan, len(prev.plans), len(prev.plans)+1)
		copy(plans, prev.plans)
		seqs = make([]uint64, len(prev.seqs), len(prev.seqs)+1)
		copy(seqs, prev.seqs)
	}
	s.seq++
	s.entries.Store(key, entry{
		plans:   append(plans, plan),
		seqs:    append(seqs, s.seq),
		updated: plan.RecordedAt,
	})
}

// GetExecutionPlans returns the plans recorded under key, oldest first.
// An unknown key yields an empty slice.
func (s *Store) GetExecutionPlans(key string) []ExecutionPlan {
	v, ok := s.entries.Load(key)
	if !ok {
		return []ExecutionPlan{}
	}
	prev := v.(entry).plans
	out := make([]ExecutionPlan, len(prev))
	copy(out, prev)
	return out
}

// RemoveExecutionPlans evicts the plans recorded under key so far once the
// eviction delay elapses. Until then they remain readable. Plans added
// after the call are kept.
func (s *Store) RemoveExecutionPlans(key string) {
	s.mu.Lock()
	upTo := s.seq
	s.mu.Unlock()
	s.scheduler.Schedule(s.delay, func() { s.evict(key, upTo) })
}

// evict drops the plans under key with a sequence of at most upTo.
func (s *Store) evict(key string, upTo uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries.Load(key)
	if !ok {
		return
	}
	prev := v.(entry)
	keep := entry{updated: prev.updated}
	for i, seq := range prev.seqs {
		if seq > upTo {
			keep.plans = append(keep.plans, prev.plans[i])
			keep.seqs = append(keep.seqs, seq)
		}
	}
	if len(keep.plans) == 0 {
		s.entries.Delete(key)
	} else {
		s.entries.Store(key, keep)
	}
	s.logger.Debug("execution plans evicted", "key", key,
		"evicted", len(prev.plans)-len(keep.plans), "kept", len(keep.plans))
}

// Keys returns the keys with recorded plans, sorted.
func (s *Store) Keys() []string {
	var keys []string
	s.entries.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Sweep drops keys whose last plan was recorded more than maxAge ago and
// returns how many were dropped.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	s.entries.Range(func(k, v any) bool {
		if v.(entry).updated.Before(cutoff) {
			s.entries.Delete(k)
			n++
		}
		return true
	})
	return n
}

// === Plan parsing ===

var (
	errEmptyPlan   = errors.New("analyzer returned no plan")
	errMissingPlan = errors.New("plan document has no Plan node")
)

// parse reads a document of the form
//
//	[{"Plan": {...}, "Planning Time": 0.1, "Execution Time": 2.3}]
//
// Missing times count as 0.
func (p *ExecutionPlan) parse(raw []byte) error {
	if len(raw) == 0 {
		return errEmptyPlan
	}
	var doc []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode plan: %w", err)
	}
	if len(doc) == 0 {
		return errEmptyPlan
	}
	top := doc[0]

	rawPlan, ok := top["Plan"]
	if !ok {
		return errMissingPlan
	}
	var tree map[string]any
	if err := json.Unmarshal(rawPlan, &tree); err != nil {
		return fmt.Errorf("decode plan node: %w", err)
	}
	if tree == nil {
		return errMissingPlan
	}

	execution, err := millis(top, "Execution Time")
	if err != nil {
		return err
	}
	planning, err := millis(top, "Planning Time")
	if err != nil {
		return err
	}
	p.Plan = tree
	p.ExecutionTime = round3(execution)
	p.PlanningTime = round3(planning)
	p.TimeInMillis = round3(execution + planning)
	return nil
}

func millis(top map[string]json.RawMessage, field string) (float64, error) {
	raw, ok := top[field]
	if !ok {
		return 0, nil
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decode %s: %w", field, err)
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func degenerate(sql string, err error) ExecutionPlan {
	msg := err.Error()
	return ExecutionPlan{
		Query: sql,
		Plan:  map[string]any{"error": msg},
		Error: msg,
	}
}
