package compiler

import (
	"fmt"
	"strings"

	"trackerql/internal/domain"
	"trackerql/internal/sqlir"
)

// OffsetOrdering decides the sort direction used to apply an offset.
type OffsetOrdering int

const (
	// OrderAlwaysDescending orders every level newest first regardless of
	// the offset's sign.
	OrderAlwaysDescending OffsetOrdering = iota
	// OrderBySign orders newest first for zero and negative indexes and
	// oldest first for positive ones.
	OrderBySign
)

// ParseOffsetOrdering accepts "desc" and "sign".
func ParseOffsetOrdering(s string) (OffsetOrdering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return OrderAlwaysDescending, nil
	case "sign":
		return OrderBySign, nil
	default:
		return 0, fmt.Errorf("unknown offset ordering %q", s)
	}
}

func (o OffsetOrdering) String() string {
	if o == OrderBySign {
		return "sign"
	}
	return "desc"
}

func (o OffsetOrdering) descending(off domain.Offset) bool {
	if o == OrderBySign {
		return off.IsUnbounded() || off.IsFromMostRecent()
	}
	return true
}

// ItemPredicate builds the innermost condition against the row alias.
type ItemPredicate func(alias string) sqlir.Condition

// ConditionCompiler compiles dimension filters into conditions correlated
// to the tracked entity row.
type ConditionCompiler struct {
	tables   Tables
	params   *sqlir.Params
	ordering OffsetOrdering
}

// NewConditionCompiler creates a condition compiler.
func NewConditionCompiler(tables Tables, params *sqlir.Params, ordering OffsetOrdering) *ConditionCompiler {
	return &ConditionCompiler{tables: tables, params: params, ordering: ordering}
}

// Repeatable builds the nested EXISTS that selects the enrollment and event
// picked by the dimension's offsets and applies predicate to the chosen row.
// Enrollment dimensions stop at the enrollment level.
func (c *ConditionCompiler) Repeatable(dim domain.DimensionIdentifier, predicate ItemPredicate) (sqlir.Condition, error) {
	if dim.Program == nil {
		return nil, domain.ErrCompile("dimension %s has no program", dim.Key())
	}

	enrollments := &sqlir.Query{
		From: &sqlir.From{Table: c.tables.Enrollment, Alias: "en"},
		Where: &sqlir.Where{Condition: sqlir.AndOf(
			sqlir.Eq("en.trackedentity", col(TrackedEntityAlias, "trackedentity")),
			sqlir.Eq("en.program", c.params.Add(dim.Program.UID)),
		)},
	}
	c.applyOffset(enrollments, "en.enrollmentdate", dim.Program.Offset)

	var inner sqlir.Condition
	if dim.ProgramStage == nil {
		inner = predicate("en")
	} else {
		events := &sqlir.Query{
			From: &sqlir.From{Table: c.tables.Event, Alias: "ev"},
			Where: &sqlir.Where{Condition: sqlir.AndOf(
				sqlir.Eq("ev.enrollment", "en.enrollment"),
				sqlir.Eq("ev.programstage", c.params.Add(dim.ProgramStage.UID)),
			)},
		}
		c.applyOffset(events, "ev.occurreddate", dim.ProgramStage.Offset)

		item := &sqlir.Query{
			Select: selectOne(),
			From:   &sqlir.From{Table: c.tables.Event, Alias: "evi"},
			Where:  &sqlir.Where{Condition: sqlir.AndOf(sqlir.Eq("evi.event", "ev.event"), predicate("evi"))},
		}
		inner = sqlir.Exists{Query: &sqlir.Query{
			Select: selectOne(),
			From:   &sqlir.From{Subquery: events, Alias: "ev"},
			Where:  &sqlir.Where{Condition: sqlir.Exists{Query: item}},
		}}
	}

	return sqlir.Exists{Query: &sqlir.Query{
		Select: selectOne(),
		From:   &sqlir.From{Subquery: enrollments, Alias: "en"},
		Where:  &sqlir.Where{Condition: inner},
	}}, nil
}

// applyOffset orders q by dateCol and keeps the row the offset selects.
// Unbounded offsets keep every row.
func (c *ConditionCompiler) applyOffset(q *sqlir.Query, dateCol string, off domain.Offset) {
	if off.IsUnbounded() {
		return
	}
	q.Order = &sqlir.Order{Items: []sqlir.OrderItem{{Expression: dateCol, Descending: c.ordering.descending(off)}}}
	q.Limit = &sqlir.LimitOffset{Limit: 1, Offset: off.RowOffset()}
}

// ValuePredicate builds the item predicate comparing the dimension's value
// with the filter operands. dim must carry its resolved value type.
func (c *ConditionCompiler) ValuePredicate(dim domain.DimensionIdentifier, filter domain.Filter) (ItemPredicate, error) {
	mapping := domain.MapValueType(dim.Dimension.ValueType)
	textual := filter.Operator == domain.OpLike || filter.Operator == domain.OpILike

	var binds []any
	for _, v := range filter.Values {
		if textual {
			binds = append(binds, "%"+v+"%")
			continue
		}
		b, err := mapping.BindValue(v)
		if err != nil {
			return nil, err
		}
		binds = append(binds, b)
	}

	switch filter.Operator {
	case domain.OpNull, domain.OpNotNull, domain.OpIn:
	default:
		if filter.Operator.SQL() == "" {
			return nil, domain.ErrCompile("unsupported operator %s", filter.Operator)
		}
		if len(binds) != 1 {
			return nil, domain.ErrValidation("operator %s takes one value", filter.Operator)
		}
	}

	return func(alias string) sqlir.Condition {
		expr := c.valueExpression(dim, alias)
		if mapping == domain.MappingNumeric && !textual {
			expr = "(" + expr + ")::" + mapping.CastTarget()
		}
		switch filter.Operator {
		case domain.OpNull:
			return sqlir.IsNull{Expression: expr}
		case domain.OpNotNull:
			return sqlir.IsNull{Expression: expr, Not: true}
		case domain.OpIn:
			placeholders := make([]string, len(binds))
			for i, b := range binds {
				placeholders[i] = c.params.Add(b)
			}
			return sqlir.In{Expression: expr, Values: placeholders}
		default:
			return sqlir.Compare{Left: expr, Op: filter.Operator.SQL(), Right: c.params.Add(binds[0])}
		}
	}, nil
}

func (c *ConditionCompiler) valueExpression(dim domain.DimensionIdentifier, alias string) string {
	if dim.IsEventDimension() {
		return eventValue(alias, c.params.Add(dim.Dimension.UID))
	}
	return attributeValue(c.tables, c.params, alias, dim.Dimension.UID)
}

// Filter compiles a dimension filter according to the dimension's level.
func (c *ConditionCompiler) Filter(dim domain.DimensionIdentifier, filter domain.Filter) (sqlir.Condition, error) {
	predicate, err := c.ValuePredicate(dim, filter)
	if err != nil {
		return nil, err
	}
	if dim.IsTrackedEntityDimension() {
		return predicate(TrackedEntityAlias), nil
	}
	return c.Repeatable(dim, predicate)
}
