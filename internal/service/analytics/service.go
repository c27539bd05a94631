// Package analytics compiles tracked entity analytics requests, runs them
// against the analytics database and records their execution plans.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"trackerql/internal/compiler"
	"trackerql/internal/domain"
	"trackerql/internal/planstore"
)

// PlanStore records and hands out EXPLAIN ANALYZE plans. Implemented by
// planstore.Store.
type PlanStore interface {
	AddExecutionPlan(ctx context.Context, key, sql string, args ...any)
	GetExecutionPlans(key string) []planstore.ExecutionPlan
	RemoveExecutionPlans(key string)
}

// Optimizer rewrites generated SQL. Implemented by sqlrewrite.Optimizer.
type Optimizer interface {
	Optimize(sql string) string
}

// ErrNoDatabase is returned by Query when rows are requested but no
// analytics database is configured.
var ErrNoDatabase = errors.New("no analytics database configured")

// GridHeader describes one result column.
type GridHeader struct {
	Name      string `json:"name"`
	Column    string `json:"column"`
	ValueType string `json:"valueType"`
}

// Grid is the result of a query.
type Grid struct {
	Headers    []GridHeader `json:"headers"`
	Rows       [][]any      `json:"rows"`
	Height     int          `json:"height"`
	ExplainKey string       `json:"explainKey,omitempty"`
	SQL        string       `json:"sql,omitempty"`
}

// Service turns requests into grids.
type Service struct {
	catalog   domain.MetadataCatalog
	executor  domain.QueryExecutor
	plans     PlanStore
	optimizer Optimizer
	builder   *compiler.QueryBuilder

	ordering   compiler.OffsetOrdering
	optimize   bool
	includeSQL bool
	logger     *slog.Logger
	newExplain func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithOffsetOrdering sets how offsets choose their sort direction.
func WithOffsetOrdering(o compiler.OffsetOrdering) Option {
	return func(s *Service) { s.ordering = o }
}

// WithOptimizer toggles the CTE rewrite of generated SQL.
func WithOptimizer(enabled bool) Option {
	return func(s *Service) { s.optimize = enabled }
}

// WithSQL includes the executed SQL in returned grids.
func WithSQL(enabled bool) Option {
	return func(s *Service) { s.includeSQL = enabled }
}

// NewService creates a Service. executor may be nil, in which case only
// analyze-only requests can run. optimizer may be nil to disable rewriting.
func NewService(catalog domain.MetadataCatalog, executor domain.QueryExecutor, plans PlanStore, optimizer Optimizer, opts ...Option) *Service {
	s := &Service{
		catalog:    catalog,
		executor:   executor,
		plans:      plans,
		optimizer:  optimizer,
		optimize:   optimizer != nil,
		logger:     slog.Default(),
		newExplain: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.optimizer == nil {
		s.optimize = false
	}
	s.builder = compiler.NewQueryBuilder(compiler.WithOffsetOrdering(s.ordering))
	return s
}

// Compiled is a request translated to SQL.
type Compiled struct {
	SQL     string
	Params  []any
	Headers []GridHeader
}

// Compile validates req, resolves its dimensions and returns the SQL that
// Query would run. Nothing is sent to the database.
func (s *Service) Compile(ctx context.Context, req QueryRequest) (*Compiled, error) {
	if err := requireUID("tracked entity type", req.TrackedEntityType); err != nil {
		return nil, err
	}
	if _, err := s.catalog.TrackedEntityType(ctx, req.TrackedEntityType); err != nil {
		return nil, err
	}

	creq := compiler.Request{
		TrackedEntityType: req.TrackedEntityType,
		Limit:             req.Limit,
		Offset:            req.Offset,
	}
	names := map[string]string{}
	for _, c := range req.Columns {
		el, err := c.element()
		if err != nil {
			return nil, err
		}
		if c.Kind == ColumnAttribute {
			name, err := s.attributeName(ctx, c.Attribute)
			if err != nil {
				return nil, err
			}
			names[el.ColumnAlias()] = name
		}
		creq.Elements = append(creq.Elements, el)
	}
	for _, f := range req.Filters {
		df, err := s.resolveFilter(ctx, f)
		if err != nil {
			return nil, err
		}
		creq.Filters = append(creq.Filters, df)
	}
	for _, o := range req.Sort {
		creq.Sort = append(creq.Sort, compiler.SortItem{Alias: o.Column, Descending: o.Descending})
	}

	plan, err := s.builder.Build(creq)
	if err != nil {
		return nil, err
	}

	sql := plan.SQL()
	if s.optimize {
		sql = s.optimizer.Optimize(sql)
	}

	headers := make([]GridHeader, len(plan.Headers))
	for i, h := range plan.Headers {
		column := names[h.Alias]
		if column == "" {
			column = h.Alias
		}
		headers[i] = GridHeader{Name: h.Alias, Column: column, ValueType: string(h.DataType)}
	}
	return &Compiled{SQL: sql, Params: plan.Params, Headers: headers}, nil
}

func (s *Service) attributeName(ctx context.Context, uid string) (string, error) {
	id, err := domain.NewTrackedEntityDimension(uid)
	if err != nil {
		return "", err
	}
	resolved, err := s.catalog.ResolveDimension(ctx, id)
	if err != nil {
		return "", err
	}
	return resolved.Name, nil
}

func (s *Service) resolveFilter(ctx context.Context, f FilterRequest) (compiler.DimensionFilter, error) {
	id, err := domain.ParseDimensionIdentifier(f.Dimension)
	if err != nil {
		return compiler.DimensionFilter{}, err
	}
	filter, err := domain.ParseFilter(f.Filter)
	if err != nil {
		return compiler.DimensionFilter{}, err
	}
	resolved, err := s.catalog.ResolveDimension(ctx, id)
	if err != nil {
		return compiler.DimensionFilter{}, err
	}
	return compiler.DimensionFilter{Identifier: resolved.Identifier, Filter: filter}, nil
}

// Query compiles and runs req. With AnalyzeOnly set the plan is recorded
// under the request's explain key and the grid carries headers only.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*Grid, error) {
	compiled, err := s.Compile(ctx, req)
	if err != nil {
		return nil, err
	}

	grid := &Grid{Headers: compiled.Headers, Rows: [][]any{}}
	if s.includeSQL {
		grid.SQL = compiled.SQL
	}

	if req.AnalyzeOnly {
		key := req.ExplainKey
		if key == "" {
			key = s.newExplain()
		}
		s.plans.AddExecutionPlan(ctx, key, compiled.SQL, compiled.Params...)
		grid.ExplainKey = key
		s.logger.Debug("execution plan recorded", "key", key, "tracked_entity_type", req.TrackedEntityType)
		return grid, nil
	}

	if s.executor == nil {
		return nil, ErrNoDatabase
	}
	result, err := s.executor.Query(ctx, compiled.SQL, compiled.Params...)
	if err != nil {
		return nil, fmt.Errorf("run analytics query: %w", err)
	}
	grid.Rows = result.Rows
	grid.Height = len(result.Rows)
	s.logger.Debug("analytics query executed",
		"tracked_entity_type", req.TrackedEntityType,
		"params", len(compiled.Params),
		"rows", grid.Height)
	return grid, nil
}

// ExplainPlans returns the plans recorded under key and schedules their
// removal. Until the eviction delay passes the plans stay readable.
func (s *Service) ExplainPlans(key string) []planstore.ExecutionPlan {
	plans := s.plans.GetExecutionPlans(key)
	if len(plans) > 0 {
		s.plans.RemoveExecutionPlans(key)
	}
	return plans
}
