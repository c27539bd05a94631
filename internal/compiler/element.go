package compiler

import "trackerql/internal/sqlir"

// SelectElement is one requested output column. The set of elements is
// closed; ElementVisitor has one method per element.
type SelectElement interface {
	Accept(v ElementVisitor) sqlir.Column
	ColumnAlias() string
	element()
}

// ElementVisitor compiles each kind of SelectElement.
type ElementVisitor interface {
	VisitTeaValue(TeaValue) sqlir.Column
	VisitProgramEnrollmentFlag(ProgramEnrollmentFlag) sqlir.Column
	VisitEnrollmentDate(EnrollmentDate) sqlir.Column
	VisitExecutionDate(ExecutionDate) sqlir.Column
	VisitEventDataValue(EventDataValue) sqlir.Column
	VisitLiteral(Literal) sqlir.Column
	VisitProgramIndicator(ProgramIndicator) sqlir.Column
}

// TeaValue is the value of a tracked entity attribute.
type TeaValue struct {
	UID   string
	Alias string
}

// ProgramEnrollmentFlag tells whether the tracked entity is enrolled in a program.
type ProgramEnrollmentFlag struct {
	ProgramUID string
	Alias      string
}

// EnrollmentDate is the date of the most recent enrollment in a program.
type EnrollmentDate struct {
	ProgramUID string
	Alias      string
}

// ExecutionDate is the date of the most recent event of a program stage.
// ProgramUID is optional.
type ExecutionDate struct {
	ProgramUID      string
	ProgramStageUID string
	Alias           string
}

// EventDataValue is the most recent captured value of a data element.
// ProgramUID is optional.
type EventDataValue struct {
	ProgramUID     string
	DataElementUID string
	Alias          string
}

// Literal is a constant bound as a parameter.
type Literal struct {
	Value any
	Alias string
}

// ProgramIndicator evaluates an indicator function over the tracked
// entity's most recent enrollment in a program. DataElementUID applies to
// IndicatorLastValue and IndicatorDataElementCount, Value to the latter.
// ProgramStageUID and RelationshipTypeUID are optional.
type ProgramIndicator struct {
	ProgramUID          string
	Function            IndicatorFunction
	DataElementUID      string
	ProgramStageUID     string
	RelationshipTypeUID string
	Value               any
	Alias               string
}

func (e TeaValue) Accept(v ElementVisitor) sqlir.Column { return v.VisitTeaValue(e) }
func (e ProgramEnrollmentFlag) Accept(v ElementVisitor) sqlir.Column {
	return v.VisitProgramEnrollmentFlag(e)
}
func (e EnrollmentDate) Accept(v ElementVisitor) sqlir.Column { return v.VisitEnrollmentDate(e) }
func (e ExecutionDate) Accept(v ElementVisitor) sqlir.Column  { return v.VisitExecutionDate(e) }
func (e EventDataValue) Accept(v ElementVisitor) sqlir.Column { return v.VisitEventDataValue(e) }
func (e Literal) Accept(v ElementVisitor) sqlir.Column        { return v.VisitLiteral(e) }
func (e ProgramIndicator) Accept(v ElementVisitor) sqlir.Column {
	return v.VisitProgramIndicator(e)
}

func (e TeaValue) ColumnAlias() string              { return e.Alias }
func (e ProgramEnrollmentFlag) ColumnAlias() string { return e.Alias }
func (e EnrollmentDate) ColumnAlias() string        { return e.Alias }
func (e ExecutionDate) ColumnAlias() string         { return e.Alias }
func (e EventDataValue) ColumnAlias() string        { return e.Alias }
func (e Literal) ColumnAlias() string               { return e.Alias }
func (e ProgramIndicator) ColumnAlias() string      { return e.Alias }

func (TeaValue) element()              {}
func (ProgramEnrollmentFlag) element() {}
func (EnrollmentDate) element()        {}
func (ExecutionDate) element()         {}
func (EventDataValue) element()        {}
func (Literal) element()               {}
func (ProgramIndicator) element()      {}
