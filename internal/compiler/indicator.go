package compiler

import (
	"strings"

	"trackerql/internal/sqlir"
)

// OuterAlias is the alias program indicator subqueries correlate to.
const OuterAlias = "subax"

// RelationshipTable holds relationship counts per tracked entity.
const RelationshipTable = "analytics_rs_relationship"

// IndicatorFunction names a program indicator function.
type IndicatorFunction string

const (
	IndicatorLastValue         IndicatorFunction = "lastValue"
	IndicatorDataElementCount  IndicatorFunction = "dataElementCount"
	IndicatorLastScheduled     IndicatorFunction = "lastScheduled"
	IndicatorLastCreated       IndicatorFunction = "lastCreated"
	IndicatorRelationshipCount IndicatorFunction = "relationshipCount"
)

// Known reports whether f is a supported indicator function.
func (f IndicatorFunction) Known() bool {
	switch f {
	case IndicatorLastValue, IndicatorDataElementCount, IndicatorLastScheduled,
		IndicatorLastCreated, IndicatorRelationshipCount:
		return true
	}
	return false
}

// IndicatorSubqueries builds the correlated scalar subqueries of program
// indicator expressions against a program's event table.
type IndicatorSubqueries struct {
	program string
	params  *sqlir.Params
}

// NewIndicatorSubqueries creates a builder for the given program.
func NewIndicatorSubqueries(programUID string, params *sqlir.Params) *IndicatorSubqueries {
	return &IndicatorSubqueries{program: programUID, params: params}
}

// EventTable returns the program's event analytics table.
func (s *IndicatorSubqueries) EventTable() string {
	return "analytics_event_" + strings.ToLower(s.program)
}

// EnrollmentTable returns the program's enrollment analytics table.
func (s *IndicatorSubqueries) EnrollmentTable() string {
	return "analytics_enrollment_" + strings.ToLower(s.program)
}

// Indicator returns the subquery computing e and its result type.
func (s *IndicatorSubqueries) Indicator(e ProgramIndicator) (*sqlir.Query, sqlir.ColumnDataType) {
	switch e.Function {
	case IndicatorLastValue:
		return s.LastValue(e.DataElementUID, e.ProgramStageUID), sqlir.TypeText
	case IndicatorDataElementCount:
		return s.DataElementCount(e.DataElementUID, e.Value, e.ProgramStageUID), sqlir.TypeNumeric
	case IndicatorLastScheduled:
		return s.LastScheduled(), sqlir.TypeDate
	case IndicatorLastCreated:
		return s.LastCreated(), sqlir.TypeDate
	default:
		return s.RelationshipCount(e.RelationshipTypeUID), sqlir.TypeNumeric
	}
}

// OverEnrollment evaluates indicator against the most recent enrollment of
// the tracked entity referenced by alias.trackedentity. The enrollment row
// is aliased OuterAlias.
func (s *IndicatorSubqueries) OverEnrollment(indicator *sqlir.Query, alias string) *sqlir.Query {
	return &sqlir.Query{
		Select: selectExpr(sqlir.ScalarSubquery(indicator)),
		From:   &sqlir.From{Table: s.EnrollmentTable(), Alias: OuterAlias},
		Where:  &sqlir.Where{Condition: sqlir.Eq(col(OuterAlias, "trackedentity"), col(alias, "trackedentity"))},
		Order:  mostRecent(col(OuterAlias, "enrollmentdate")),
		Limit:  &sqlir.LimitOffset{Limit: 1},
	}
}

// LastValue selects the most recent non-null value of a data element,
// optionally restricted to a program stage.
func (s *IndicatorSubqueries) LastValue(dataElementUID, programStageUID string) *sqlir.Query {
	return s.lastOf(sqlir.QuoteIdent(dataElementUID), programStageUID)
}

// LastScheduled selects the most recent scheduled date.
func (s *IndicatorSubqueries) LastScheduled() *sqlir.Query {
	return s.lastOf("scheduleddate", "")
}

// LastCreated selects the most recent creation timestamp.
func (s *IndicatorSubqueries) LastCreated() *sqlir.Query {
	return s.lastOf("created", "")
}

func (s *IndicatorSubqueries) lastOf(column, programStageUID string) *sqlir.Query {
	return &sqlir.Query{
		Select: selectExpr(column),
		From:   &sqlir.From{Table: s.EventTable()},
		Where:  &sqlir.Where{Condition: sqlir.AndOf(s.eventConditions(column, programStageUID)...)},
		Order:  mostRecent("occurreddate"),
		Limit:  &sqlir.LimitOffset{Limit: 1},
	}
}

// DataElementCount counts the events where a data element has value,
// optionally restricted to a program stage.
func (s *IndicatorSubqueries) DataElementCount(dataElementUID string, value any, programStageUID string) *sqlir.Query {
	de := sqlir.QuoteIdent(dataElementUID)
	conds := append(s.eventConditions(de, ""), sqlir.Eq(de, s.params.Add(value)))
	if programStageUID != "" {
		conds = append(conds, sqlir.Eq("ps", s.params.Add(programStageUID)))
	}
	return &sqlir.Query{
		Select: selectExpr("count(" + de + ")"),
		From:   &sqlir.From{Table: s.EventTable()},
		Where:  &sqlir.Where{Condition: sqlir.AndOf(conds...)},
	}
}

// RelationshipCount reads the relationship count of the outer tracked
// entity. Without a relationship type the counts of all types are summed.
func (s *IndicatorSubqueries) RelationshipCount(relationshipTypeUID string) *sqlir.Query {
	q := &sqlir.Query{
		From: &sqlir.From{Table: RelationshipTable, Alias: "arr"},
	}
	correlation := sqlir.Eq("arr.trackedentityid", col(OuterAlias, "trackedentity"))
	if relationshipTypeUID == "" {
		q.Select = selectExpr("sum(relationship_count)")
		q.Where = &sqlir.Where{Condition: correlation}
		return q
	}
	q.Select = selectExpr("relationship_count")
	q.Where = &sqlir.Where{Condition: sqlir.AndOf(
		correlation,
		sqlir.Eq("relationshiptypeuid", s.params.Add(relationshipTypeUID)),
	)}
	return q
}

func (s *IndicatorSubqueries) eventConditions(column, programStageUID string) []sqlir.Condition {
	table := s.EventTable()
	conds := []sqlir.Condition{
		sqlir.Eq(col(table, "enrollment"), col(OuterAlias, "enrollment")),
		sqlir.IsNull{Expression: column, Not: true},
	}
	if programStageUID != "" {
		conds = append(conds, sqlir.Eq("ps", s.params.Add(programStageUID)))
	}
	return conds
}
