package analytics

import (
	"strings"

	"trackerql/internal/compiler"
	"trackerql/internal/domain"
)

// Column kinds accepted in QueryRequest.Columns.
const (
	ColumnAttribute      = "attribute"
	ColumnEnrolled       = "enrolled"
	ColumnEnrollmentDate = "enrollmentDate"
	ColumnExecutionDate  = "executionDate"
	ColumnDataValue      = "dataValue"
	ColumnLiteral        = "literal"
	ColumnIndicator      = "indicator"
)

// QueryRequest is a tracked entity analytics query as submitted over HTTP or
// read from a request file.
type QueryRequest struct {
	TrackedEntityType string          `json:"trackedEntityType" yaml:"trackedEntityType"`
	Columns           []ColumnRequest `json:"columns,omitempty" yaml:"columns"`
	Filters           []FilterRequest `json:"filters,omitempty" yaml:"filters"`
	Sort              []SortRequest   `json:"sort,omitempty" yaml:"sort"`
	Limit             int             `json:"limit,omitempty" yaml:"limit"`
	Offset            int             `json:"offset,omitempty" yaml:"offset"`

	// AnalyzeOnly records an EXPLAIN ANALYZE plan under ExplainKey instead
	// of returning rows.
	AnalyzeOnly bool   `json:"analyzeOnly,omitempty" yaml:"analyzeOnly"`
	ExplainKey  string `json:"explainKey,omitempty" yaml:"explainKey"`
}

// ColumnRequest selects one output column. Which uid fields apply depends on Kind.
type ColumnRequest struct {
	Kind         string `json:"kind" yaml:"kind"`
	Alias        string `json:"alias" yaml:"alias"`
	Attribute    string `json:"attribute,omitempty" yaml:"attribute"`
	Program      string `json:"program,omitempty" yaml:"program"`
	ProgramStage string `json:"programStage,omitempty" yaml:"programStage"`
	DataElement  string `json:"dataElement,omitempty" yaml:"dataElement"`
	Value        any    `json:"value,omitempty" yaml:"value"`

	// Indicator and RelationshipType apply to ColumnIndicator.
	Indicator        string `json:"indicator,omitempty" yaml:"indicator"`
	RelationshipType string `json:"relationshipType,omitempty" yaml:"relationshipType"`
}

// FilterRequest restricts the result by a dimension, e.g.
// {"dimension": "IpHINAT79UW.A03MvHHogjR[-1].a3kGcGDCuk6", "filter": "GT:5"}.
type FilterRequest struct {
	Dimension string `json:"dimension" yaml:"dimension"`
	Filter    string `json:"filter" yaml:"filter"`
}

// SortRequest orders by a column alias.
type SortRequest struct {
	Column     string `json:"column" yaml:"column"`
	Descending bool   `json:"descending,omitempty" yaml:"descending"`
}

func requireUID(kind, uid string) error {
	if !domain.IsValidUID(uid) {
		return domain.ErrValidation("invalid %s uid %q", kind, uid)
	}
	return nil
}

func optionalUID(kind, uid string) error {
	if uid == "" {
		return nil
	}
	return requireUID(kind, uid)
}

// element converts the column into a compiler select element.
func (c ColumnRequest) element() (compiler.SelectElement, error) {
	alias := strings.TrimSpace(c.Alias)
	if alias == "" {
		return nil, domain.ErrValidation("column of kind %q requires an alias", c.Kind)
	}

	switch c.Kind {
	case ColumnAttribute:
		if err := requireUID("attribute", c.Attribute); err != nil {
			return nil, err
		}
		return compiler.TeaValue{UID: c.Attribute, Alias: alias}, nil
	case ColumnEnrolled:
		if err := requireUID("program", c.Program); err != nil {
			return nil, err
		}
		return compiler.ProgramEnrollmentFlag{ProgramUID: c.Program, Alias: alias}, nil
	case ColumnEnrollmentDate:
		if err := requireUID("program", c.Program); err != nil {
			return nil, err
		}
		return compiler.EnrollmentDate{ProgramUID: c.Program, Alias: alias}, nil
	case ColumnExecutionDate:
		if err := optionalUID("program", c.Program); err != nil {
			return nil, err
		}
		if err := requireUID("program stage", c.ProgramStage); err != nil {
			return nil, err
		}
		return compiler.ExecutionDate{ProgramUID: c.Program, ProgramStageUID: c.ProgramStage, Alias: alias}, nil
	case ColumnDataValue:
		if err := optionalUID("program", c.Program); err != nil {
			return nil, err
		}
		if err := requireUID("data element", c.DataElement); err != nil {
			return nil, err
		}
		return compiler.EventDataValue{ProgramUID: c.Program, DataElementUID: c.DataElement, Alias: alias}, nil
	case ColumnLiteral:
		if c.Value == nil {
			return nil, domain.ErrValidation("literal column %q requires a value", alias)
		}
		return compiler.Literal{Value: c.Value, Alias: alias}, nil
	case ColumnIndicator:
		return c.indicator(alias)
	default:
		return nil, domain.ErrValidation("unknown column kind %q", c.Kind)
	}
}

func (c ColumnRequest) indicator(alias string) (compiler.SelectElement, error) {
	fn := compiler.IndicatorFunction(c.Indicator)
	if !fn.Known() {
		return nil, domain.ErrValidation("unknown indicator %q", c.Indicator)
	}
	if err := requireUID("program", c.Program); err != nil {
		return nil, err
	}
	if err := optionalUID("program stage", c.ProgramStage); err != nil {
		return nil, err
	}
	if err := optionalUID("relationship type", c.RelationshipType); err != nil {
		return nil, err
	}
	switch fn {
	case compiler.IndicatorLastValue, compiler.IndicatorDataElementCount:
		if err := requireUID("data element", c.DataElement); err != nil {
			return nil, err
		}
	}
	if fn == compiler.IndicatorDataElementCount && c.Value == nil {
		return nil, domain.ErrValidation("indicator column %q requires a value to count", alias)
	}
	return compiler.ProgramIndicator{
		ProgramUID:          c.Program,
		Function:            fn,
		DataElementUID:      c.DataElement,
		ProgramStageUID:     c.ProgramStage,
		RelationshipTypeUID: c.RelationshipType,
		Value:               c.Value,
		Alias:               alias,
	}, nil
}
