package compiler

import (
	"trackerql/internal/sqlir"
)

var _ ElementVisitor = (*ColumnCompiler)(nil)

// ColumnCompiler compiles select elements into virtual columns correlated to
// the tracked entity row. Uids and literals are bound through params, except
// the data element columns of program indicators, which are quoted identifiers.
type ColumnCompiler struct {
	tables Tables
	params *sqlir.Params
}

// NewColumnCompiler creates a compiler that allocates placeholders from params.
func NewColumnCompiler(tables Tables, params *sqlir.Params) *ColumnCompiler {
	return &ColumnCompiler{tables: tables, params: params}
}

// Compile returns the column for el.
func (c *ColumnCompiler) Compile(el SelectElement) sqlir.Column {
	return el.Accept(c)
}

func (c *ColumnCompiler) VisitTeaValue(e TeaValue) sqlir.Column {
	return virtual(attributeValue(c.tables, c.params, TrackedEntityAlias, e.UID), sqlir.TypeText, e.Alias)
}

func (c *ColumnCompiler) VisitProgramEnrollmentFlag(e ProgramEnrollmentFlag) sqlir.Column {
	q := &sqlir.Query{
		Select: selectOne(),
		From:   &sqlir.From{Table: c.tables.Enrollment, Alias: "en"},
		Where:  &sqlir.Where{Condition: c.enrollmentOf(e.ProgramUID)},
	}
	return virtual(sqlir.Exists{Query: q}.Render(), sqlir.TypeBoolean, e.Alias)
}

func (c *ColumnCompiler) VisitEnrollmentDate(e EnrollmentDate) sqlir.Column {
	q := &sqlir.Query{
		Select: selectExpr("en.enrollmentdate"),
		From:   &sqlir.From{Table: c.tables.Enrollment, Alias: "en"},
		Where:  &sqlir.Where{Condition: c.enrollmentOf(e.ProgramUID)},
		Order:  mostRecent("en.enrollmentdate"),
		Limit:  &sqlir.LimitOffset{Limit: 1},
	}
	return virtual(sqlir.ScalarSubquery(q), sqlir.TypeDate, e.Alias)
}

func (c *ColumnCompiler) VisitExecutionDate(e ExecutionDate) sqlir.Column {
	conds := c.eventsOf(e.ProgramUID)
	conds = append(conds, sqlir.Eq("ev.programstage", c.params.Add(e.ProgramStageUID)))
	q := &sqlir.Query{
		Select: selectExpr("ev.occurreddate"),
		From:   &sqlir.From{Table: c.tables.Event, Alias: "ev"},
		Where:  &sqlir.Where{Condition: sqlir.AndOf(conds...)},
		Order:  mostRecent("ev.occurreddate"),
		Limit:  &sqlir.LimitOffset{Limit: 1},
	}
	return virtual(sqlir.ScalarSubquery(q), sqlir.TypeDate, e.Alias)
}

func (c *ColumnCompiler) VisitEventDataValue(e EventDataValue) sqlir.Column {
	de := c.params.Add(e.DataElementUID)
	conds := c.eventsOf(e.ProgramUID)
	conds = append(conds, sqlir.IsNull{Expression: "ev.eventdatavalues -> " + de, Not: true})
	q := &sqlir.Query{
		Select: selectExpr(eventValue("ev", de)),
		From:   &sqlir.From{Table: c.tables.Event, Alias: "ev"},
		Where:  &sqlir.Where{Condition: sqlir.AndOf(conds...)},
		Order:  mostRecent("ev.occurreddate"),
		Limit:  &sqlir.LimitOffset{Limit: 1},
	}
	return virtual(sqlir.ScalarSubquery(q), sqlir.TypeText, e.Alias)
}

func (c *ColumnCompiler) VisitLiteral(e Literal) sqlir.Column {
	return virtual(c.params.Add(e.Value), literalType(e.Value), e.Alias)
}

func (c *ColumnCompiler) VisitProgramIndicator(e ProgramIndicator) sqlir.Column {
	s := NewIndicatorSubqueries(e.ProgramUID, c.params)
	indicator, dt := s.Indicator(e)
	return virtual(sqlir.ScalarSubquery(s.OverEnrollment(indicator, TrackedEntityAlias)), dt, e.Alias)
}

func (c *ColumnCompiler) enrollmentOf(programUID string) sqlir.Condition {
	return sqlir.AndOf(
		sqlir.Eq("en.trackedentity", col(TrackedEntityAlias, "trackedentity")),
		sqlir.Eq("en.program", c.params.Add(programUID)),
	)
}

func (c *ColumnCompiler) eventsOf(programUID string) []sqlir.Condition {
	conds := []sqlir.Condition{sqlir.Eq("ev.trackedentity", col(TrackedEntityAlias, "trackedentity"))}
	if programUID != "" {
		conds = append(conds, sqlir.Eq("ev.program", c.params.Add(programUID)))
	}
	return conds
}

// attributeValue is the scalar subquery reading an attribute of the tracked
// entity referenced by alias.trackedentity.
func attributeValue(tables Tables, params *sqlir.Params, alias, attributeUID string) string {
	q := &sqlir.Query{
		Select: selectExpr("tav.value"),
		From:   &sqlir.From{Table: tables.AttributeValue, Alias: "tav"},
		Where: &sqlir.Where{Condition: sqlir.AndOf(
			sqlir.Eq("tav.trackedentity", col(alias, "trackedentity")),
			sqlir.Eq("tav.attribute", params.Add(attributeUID)),
		)},
	}
	return sqlir.ScalarSubquery(q)
}

func eventValue(alias, dePlaceholder string) string {
	return alias + ".eventdatavalues -> " + dePlaceholder + " ->> 'value'"
}

func virtual(expr string, dt sqlir.ColumnDataType, alias string) sqlir.Column {
	return sqlir.Column{Expression: expr, DataType: dt, Alias: alias, Virtual: true}
}

func selectOne() sqlir.Select { return selectExpr("1") }

func selectExpr(expr string) sqlir.Select {
	return sqlir.Select{Columns: []sqlir.Column{{Expression: expr}}}
}

func mostRecent(dateCol string) *sqlir.Order {
	return &sqlir.Order{Items: []sqlir.OrderItem{{Expression: dateCol, Descending: true}}}
}

func literalType(v any) sqlir.ColumnDataType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return sqlir.TypeNumeric
	case bool:
		return sqlir.TypeBoolean
	default:
		return sqlir.TypeText
	}
}
