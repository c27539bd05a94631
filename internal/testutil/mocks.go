// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"trackerql/internal/domain"
)

// === Analyzer Mock ===

// MockAnalyzer implements planstore.Analyzer for testing.
type MockAnalyzer struct {
	ExplainFn func(ctx context.Context, sql string, args ...any) ([]byte, error)

	mu    sync.Mutex
	Calls []string // SQL of every Explain call
}

// Explain implements the interface method for testing.
func (m *MockAnalyzer) Explain(ctx context.Context, sql string, args ...any) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, sql)
	m.mu.Unlock()
	if m.ExplainFn != nil {
		return m.ExplainFn(ctx, sql, args...)
	}
	panic("unexpected call to MockAnalyzer.Explain")
}

// === Metadata Catalog Mock ===

// MockCatalog implements domain.MetadataCatalog for testing.
type MockCatalog struct {
	ResolveDimensionFn  func(ctx context.Context, id domain.DimensionIdentifier) (domain.ResolvedDimension, error)
	TrackedEntityTypeFn func(ctx context.Context, uid string) (*domain.TrackedEntityType, error)
}

// ResolveDimension implements the interface method for testing.
func (m *MockCatalog) ResolveDimension(ctx context.Context, id domain.DimensionIdentifier) (domain.ResolvedDimension, error) {
	if m.ResolveDimensionFn != nil {
		return m.ResolveDimensionFn(ctx, id)
	}
	panic("unexpected call to MockCatalog.ResolveDimension")
}

// TrackedEntityType implements the interface method for testing.
func (m *MockCatalog) TrackedEntityType(ctx context.Context, uid string) (*domain.TrackedEntityType, error) {
	if m.TrackedEntityTypeFn != nil {
		return m.TrackedEntityTypeFn(ctx, uid)
	}
	panic("unexpected call to MockCatalog.TrackedEntityType")
}

// === Query Executor Mock ===

// MockExecutor implements domain.QueryExecutor for testing.
type MockExecutor struct {
	QueryFn func(ctx context.Context, sql string, args ...any) (*domain.QueryResult, error)
}

// Query implements the interface method for testing.
func (m *MockExecutor) Query(ctx context.Context, sql string, args ...any) (*domain.QueryResult, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql, args...)
	}
	panic("unexpected call to MockExecutor.Query")
}

// === Manual Scheduler ===

// ManualScheduler implements planstore.Scheduler with a fake clock. Tasks
// run only when Advance moves the clock past their due time.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []scheduledTask
}

type scheduledTask struct {
	due  time.Duration
	task func()
}

// Schedule implements the interface method for testing.
func (s *ManualScheduler) Schedule(delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, scheduledTask{due: s.now + delay, task: task})
}

// Advance moves the clock forward and runs the tasks that became due, in
// due order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due, rest []scheduledTask
	for _, t := range s.tasks {
		if t.due <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.tasks = rest
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, t := range due {
		t.task()
	}
}

// Pending returns the number of tasks not yet run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
