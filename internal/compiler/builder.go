package compiler

import (
	"trackerql/internal/domain"
	"trackerql/internal/sqlir"
)

// Paging limits.
const (
	DefaultLimit = 50
	MaxLimit     = 10000
)

// DimensionFilter restricts the result by one dimension.
type DimensionFilter struct {
	Identifier domain.DimensionIdentifier
	Filter     domain.Filter
}

// SortItem orders the result by a select element alias.
type SortItem struct {
	Alias      string
	Descending bool
}

// Request is a tracked entity query.
type Request struct {
	TrackedEntityType string
	Elements          []SelectElement
	Filters           []DimensionFilter
	Sort              []SortItem
	Limit             int
	Offset            int
}

// Plan is a compiled query with its bind values and result headers.
type Plan struct {
	Query   *sqlir.Query
	Params  []any
	Headers []sqlir.Column
}

// SQL renders the query.
func (p *Plan) SQL() string { return p.Query.Render() }

// QueryBuilder compiles requests into plans.
type QueryBuilder struct {
	ordering OffsetOrdering
}

// BuilderOption configures a QueryBuilder.
type BuilderOption func(*QueryBuilder)

// WithOffsetOrdering sets how offsets choose their sort direction.
func WithOffsetOrdering(o OffsetOrdering) BuilderOption {
	return func(b *QueryBuilder) { b.ordering = o }
}

// NewQueryBuilder creates a builder.
func NewQueryBuilder(opts ...BuilderOption) *QueryBuilder {
	b := &QueryBuilder{ordering: OrderAlwaysDescending}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates req and compiles it. Placeholders are numbered in the
// order they appear: select list first, then filters.
func (b *QueryBuilder) Build(req Request) (*Plan, error) {
	if !domain.IsValidUID(req.TrackedEntityType) {
		return nil, domain.ErrValidation("invalid tracked entity type %q", req.TrackedEntityType)
	}
	limit, err := pageLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 {
		return nil, domain.ErrValidation("offset must not be negative")
	}

	tables := TablesFor(req.TrackedEntityType)
	params := sqlir.NewParams()
	columns := NewColumnCompiler(tables, params)
	conditions := NewConditionCompiler(tables, params, b.ordering)

	headers := []sqlir.Column{{
		Expression: col(TrackedEntityAlias, "trackedentity"),
		DataType:   sqlir.TypeText,
		Alias:      "trackedentity",
	}}
	seen := map[string]bool{"trackedentity": true}
	for _, el := range req.Elements {
		alias := el.ColumnAlias()
		if alias == "" {
			return nil, domain.ErrValidation("select element requires an alias")
		}
		if seen[alias] {
			return nil, domain.ErrValidation("duplicate column alias %q", alias)
		}
		seen[alias] = true
		headers = append(headers, columns.Compile(el))
	}

	var filters []sqlir.Condition
	for _, f := range req.Filters {
		cond, err := conditions.Filter(f.Identifier, f.Filter)
		if err != nil {
			return nil, err
		}
		filters = append(filters, cond)
	}

	var order *sqlir.Order
	for _, s := range req.Sort {
		h, ok := findHeader(headers, s.Alias)
		if !ok {
			return nil, domain.ErrValidation("cannot sort by unknown column %q", s.Alias)
		}
		if order == nil {
			order = &sqlir.Order{}
		}
		order.Items = append(order.Items, sqlir.OrderItem{
			Expression: h.OrderExpression(),
			Descending: s.Descending,
			NullsLast:  true,
		})
	}

	q := &sqlir.Query{
		Select: sqlir.Select{Columns: headers},
		From:   &sqlir.From{Table: tables.TrackedEntity, Alias: TrackedEntityAlias},
		Order:  order,
		Limit:  &sqlir.LimitOffset{Limit: limit, Offset: req.Offset},
	}
	if len(filters) > 0 {
		q.Where = &sqlir.Where{Condition: sqlir.AndOf(filters...)}
	}

	return &Plan{Query: q, Params: params.Values(), Headers: headers}, nil
}

func pageLimit(n int) (int, error) {
	switch {
	case n < 0:
		return 0, domain.ErrValidation("limit must not be negative")
	case n == 0:
		return DefaultLimit, nil
	case n > MaxLimit:
		return MaxLimit, nil
	default:
		return n, nil
	}
}

func findHeader(headers []sqlir.Column, alias string) (sqlir.Column, bool) {
	for _, h := range headers {
		if h.Alias == alias {
			return h, true
		}
	}
	return sqlir.Column{}, false
}
