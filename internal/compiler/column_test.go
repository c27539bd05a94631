package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackerql/internal/sqlir"
)

const (
	testTET     = "nEenWmSyUEp"
	testProgram = "IpHINAT79UW"
	testStage   = "A03MvHHogjR"
	testDE      = "a3kGcGDCuk6"
	testAttr    = "w75KJ2mc4zz"

	enrTable = "analytics_te_enrollment_neenwmsyuep"
	evtTable = "analytics_te_event_neenwmsyuep"
)

// === Tables ===

func TestTablesFor(t *testing.T) {
	tables := TablesFor(testTET)
	assert.Equal(t, "analytics_te_neenwmsyuep", tables.TrackedEntity)
	assert.Equal(t, enrTable, tables.Enrollment)
	assert.Equal(t, evtTable, tables.Event)
	assert.Equal(t, "trackedentityattributevalue", tables.AttributeValue)
}

// === Column compiler ===

func TestColumnCompiler_Compile(t *testing.T) {
	tests := []struct {
		name       string
		element    SelectElement
		expression string
		dataType   sqlir.ColumnDataType
		params     []any
	}{
		{
			name:    "tea value",
			element: TeaValue{UID: testAttr, Alias: "firstName"},
			expression: "(SELECT tav.value FROM trackedentityattributevalue tav " +
				"WHERE tav.trackedentity = t_1.trackedentity AND tav.attribute = $1)",
			dataType: sqlir.TypeText,
			params:   []any{testAttr},
		},
		{
			name:    "program enrollment flag",
			element: ProgramEnrollmentFlag{ProgramUID: testProgram, Alias: "enrolled"},
			expression: "EXISTS (SELECT 1 FROM " + enrTable + " en " +
				"WHERE en.trackedentity = t_1.trackedentity AND en.program = $1)",
			dataType: sqlir.TypeBoolean,
			params:   []any{testProgram},
		},
		{
			name:    "enrollment date",
			element: EnrollmentDate{ProgramUID: testProgram, Alias: "enrollmentDate"},
			expression: "(SELECT en.enrollmentdate FROM " + enrTable + " en " +
				"WHERE en.trackedentity = t_1.trackedentity AND en.program = $1 " +
				"ORDER BY en.enrollmentdate DESC LIMIT 1)",
			dataType: sqlir.TypeDate,
			params:   []any{testProgram},
		},
		{
			name:    "execution date with program",
			element: ExecutionDate{ProgramUID: testProgram, ProgramStageUID: testStage, Alias: "eventDate"},
			expression: "(SELECT ev.occurreddate FROM " + evtTable + " ev " +
				"WHERE ev.trackedentity = t_1.trackedentity AND ev.program = $1 AND ev.programstage = $2 " +
				"ORDER BY ev.occurreddate DESC LIMIT 1)",
			dataType: sqlir.TypeDate,
			params:   []any{testProgram, testStage},
		},
		{
			name:    "execution date without program",
			element: ExecutionDate{ProgramStageUID: testStage, Alias: "eventDate"},
			expression: "(SELECT ev.occurreddate FROM " + evtTable + " ev " +
				"WHERE ev.trackedentity = t_1.trackedentity AND ev.programstage = $1 " +
				"ORDER BY ev.occurreddate DESC LIMIT 1)",
			dataType: sqlir.TypeDate,
			params:   []any{testStage},
		},
		{
			name:    "event data value",
			element: EventDataValue{DataElementUID: testDE, Alias: "weight"},
			expression: "(SELECT ev.eventdatavalues -> $1 ->> 'value' FROM " + evtTable + " ev " +
				"WHERE ev.trackedentity = t_1.trackedentity AND ev.eventdatavalues -> $1 IS NOT NULL " +
				"ORDER BY ev.occurreddate DESC LIMIT 1)",
			dataType: sqlir.TypeText,
			params:   []any{testDE},
		},
		{
			name:    "event data value with program",
			element: EventDataValue{ProgramUID: testProgram, DataElementUID: testDE, Alias: "weight"},
			expression: "(SELECT ev.eventdatavalues -> $1 ->> 'value' FROM " + evtTable + " ev " +
				"WHERE ev.trackedentity = t_1.trackedentity AND ev.program = $2 AND ev.eventdatavalues -> $1 IS NOT NULL " +
				"ORDER BY ev.occurreddate DESC LIMIT 1)",
			dataType: sqlir.TypeText,
			params:   []any{testDE, testProgram},
		},
		{
			name: "typed relationship count indicator",
			element: ProgramIndicator{
				ProgramUID: testProgram, Function: IndicatorRelationshipCount,
				RelationshipTypeUID: "dk34dj3xyzq", Alias: "friends",
			},
			expression: "(SELECT (SELECT relationship_count FROM analytics_rs_relationship arr " +
				"WHERE arr.trackedentityid = subax.trackedentity AND relationshiptypeuid = $1) " +
				"FROM analytics_enrollment_iphinat79uw subax WHERE subax.trackedentity = t_1.trackedentity " +
				"ORDER BY subax.enrollmentdate DESC LIMIT 1)",
			dataType: sqlir.TypeNumeric,
			params:   []any{"dk34dj3xyzq"},
		},
		{
			name: "last value indicator",
			element: ProgramIndicator{
				ProgramUID: testProgram, Function: IndicatorLastValue,
				DataElementUID: "H6uSAMO5WLD", ProgramStageUID: testStage, Alias: "lastWeight",
			},
			expression: `(SELECT (SELECT "H6uSAMO5WLD" FROM analytics_event_iphinat79uw ` +
				`WHERE analytics_event_iphinat79uw.enrollment = subax.enrollment AND "H6uSAMO5WLD" IS NOT NULL AND ps = $1 ` +
				`ORDER BY occurreddate DESC LIMIT 1) ` +
				`FROM analytics_enrollment_iphinat79uw subax WHERE subax.trackedentity = t_1.trackedentity ` +
				`ORDER BY subax.enrollmentdate DESC LIMIT 1)`,
			dataType: sqlir.TypeText,
			params:   []any{testStage},
		},
		{
			name:       "numeric literal",
			element:    Literal{Value: int64(5), Alias: "five"},
			expression: "$1",
			dataType:   sqlir.TypeNumeric,
			params:     []any{int64(5)},
		},
		{
			name:       "boolean literal",
			element:    Literal{Value: true, Alias: "yes"},
			expression: "$1",
			dataType:   sqlir.TypeBoolean,
			params:     []any{true},
		},
		{
			name:       "string literal",
			element:    Literal{Value: "x'; DROP TABLE t; --", Alias: "s"},
			expression: "$1",
			dataType:   sqlir.TypeText,
			params:     []any{"x'; DROP TABLE t; --"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := sqlir.NewParams()
			c := NewColumnCompiler(TablesFor(testTET), params)

			got := c.Compile(tt.element)
			assert.Equal(t, tt.expression, got.Expression)
			assert.Equal(t, tt.dataType, got.DataType)
			assert.Equal(t, tt.element.ColumnAlias(), got.Alias)
			assert.True(t, got.Virtual)
			assert.Equal(t, tt.params, params.Values())
		})
	}
}

func TestColumnCompiler_CompileIsRepeatable(t *testing.T) {
	params := sqlir.NewParams()
	c := NewColumnCompiler(TablesFor(testTET), params)
	el := EventDataValue{ProgramUID: testProgram, DataElementUID: testDE, Alias: "weight"}

	first := c.Compile(el)
	second := c.Compile(el)
	require.Equal(t, first, second)
	assert.Equal(t, 2, params.Len())
}

func TestColumnCompiler_NeverInlinesIdentifiers(t *testing.T) {
	params := sqlir.NewParams()
	c := NewColumnCompiler(TablesFor(testTET), params)

	elements := []SelectElement{
		TeaValue{UID: testAttr, Alias: "a"},
		ProgramEnrollmentFlag{ProgramUID: testProgram, Alias: "b"},
		ExecutionDate{ProgramUID: testProgram, ProgramStageUID: testStage, Alias: "c"},
		EventDataValue{DataElementUID: testDE, Alias: "d"},
	}
	for _, el := range elements {
		expr := c.Compile(el).Expression
		for _, uid := range []string{testAttr, testProgram, testStage, testDE} {
			assert.NotContains(t, expr, uid)
		}
	}
}
