package sqlrewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackerql/internal/sqlparse"
)

const evt = "analytics_event_ur1edk5oe2n"

func mustSelect(t *testing.T, sql string) *sqlparse.SelectStmt {
	t.Helper()
	sel, err := sqlparse.ParseSelect(sql)
	require.NoError(t, err)
	return sel
}

// === Data element count ===

func TestDataElementCountPattern_Match(t *testing.T) {
	const want = `SELECT enrollment, count("fCXKBdc27Bt") AS de_count FROM ` + evt +
		` WHERE "fCXKBdc27Bt" IS NOT NULL AND "fCXKBdc27Bt" = 1 AND ps = 'EPEcjy3FWmI' GROUP BY enrollment`

	tests := []struct {
		name string
		sql  string
	}{
		{
			name: "canonical order",
			sql: `select count("fCXKBdc27Bt") from ` + evt + ` where ` + evt + `.enrollment = subax.enrollment
				and "fCXKBdc27Bt" is not null and "fCXKBdc27Bt" = 1 and ps = 'EPEcjy3FWmI'`,
		},
		{
			name: "shuffled conjuncts",
			sql: `select count("fCXKBdc27Bt") from ` + evt + ` where ps = 'EPEcjy3FWmI' and 1 = "fCXKBdc27Bt"
				and subax.enrollment = ` + evt + `.enrollment and "fCXKBdc27Bt" is not null`,
		},
		{
			name: "parenthesized conjuncts",
			sql: `select count("fCXKBdc27Bt") from ` + evt + ` where (` + evt + `.enrollment = subax.enrollment)
				and ("fCXKBdc27Bt" is not null and ("fCXKBdc27Bt" = 1)) and ps = 'EPEcjy3FWmI'`,
		},
		{
			name: "aliased event table",
			sql: `select count(ev."fCXKBdc27Bt") from ` + evt + ` ev where ev.enrollment = subax.enrollment
				and ev."fCXKBdc27Bt" is not null and ev."fCXKBdc27Bt" = 1 and ev.ps = 'EPEcjy3FWmI'`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, ok := DataElementCountPattern{OuterAlias: "subax"}.Match(mustSelect(t, tt.sql))
			require.True(t, ok)
			assert.Equal(t, "de_count_fCXKBdc27Bt", found.CanonicalName)
			assert.Equal(t, "de_count", found.CTEColumnReference)
			assert.Equal(t, "dec_fcxkbdc27bt", found.JoinAlias)
			assert.Equal(t, "enrollment", found.OuterColumn)
			assert.Equal(t, "enrollment", found.CTEJoinColumn)
			assert.True(t, found.CoalesceZero)
			assert.Equal(t, map[string]string{
				"dataElementId":  "fCXKBdc27Bt",
				"value":          "1",
				"programStageId": "EPEcjy3FWmI",
			}, found.Metadata)
			assert.Equal(t, want, sqlparse.Format(found.Definition))
		})
	}
}

func TestDataElementCountPattern_WithoutStage(t *testing.T) {
	found, ok := DataElementCountPattern{OuterAlias: "subax"}.Match(mustSelect(t,
		`select count("fCXKBdc27Bt") from `+evt+` where `+evt+`.enrollment = subax.enrollment
			and "fCXKBdc27Bt" is not null and "fCXKBdc27Bt" = $3`))
	require.True(t, ok)
	assert.Equal(t, map[string]string{"dataElementId": "fCXKBdc27Bt", "value": "$3"}, found.Metadata)
	assert.Equal(t, `SELECT enrollment, count("fCXKBdc27Bt") AS de_count FROM `+evt+
		` WHERE "fCXKBdc27Bt" IS NOT NULL AND "fCXKBdc27Bt" = $3 GROUP BY enrollment`,
		sqlparse.Format(found.Definition))
}

func TestDataElementCountPattern_NoMatch(t *testing.T) {
	const corr = evt + `.enrollment = subax.enrollment`

	tests := []struct {
		name string
		sql  string
	}{
		{"count star", `select count(*) from ` + evt + ` where ` + corr + ` and "de" = 1`},
		{"count distinct", `select count(distinct "de") from ` + evt + ` where ` + corr + ` and "de" is not null and "de" = 1`},
		{"not an event table", `select count("de") from analytics_enrollment_x where analytics_enrollment_x.enrollment = subax.enrollment and "de" is not null and "de" = 1`},
		{"missing correlation", `select count("de") from ` + evt + ` where "de" is not null and "de" = 1`},
		{"correlated to another alias", `select count("de") from ` + evt + ` where ` + evt + `.enrollment = ax.enrollment and "de" is not null and "de" = 1`},
		{"bare correlation", `select count("de") from ` + evt + ` where enrollment = subax.enrollment and "de" is not null and "de" = 1`},
		{"missing not null", `select count("de") from ` + evt + ` where ` + corr + ` and "de" = 1`},
		{"missing value", `select count("de") from ` + evt + ` where ` + corr + ` and "de" is not null`},
		{"not null on other column", `select count("de") from ` + evt + ` where ` + corr + ` and "other" is not null and "de" = 1`},
		{"extra conjunct", `select count("de") from ` + evt + ` where ` + corr + ` and "de" is not null and "de" = 1 and occurreddate > '2024-01-01'`},
		{"disjunction", `select count("de") from ` + evt + ` where ` + corr + ` and "de" is not null and ("de" = 1 or "de" = 2)`},
		{"value is a column", `select count("de") from ` + evt + ` where ` + corr + ` and "de" is not null and "de" = "other"`},
		{"grouped", `select count("de") from ` + evt + ` where ` + corr + ` and "de" is not null and "de" = 1 group by ps`},
		{"limited", `select count("de") from ` + evt + ` where ` + corr + ` and "de" is not null and "de" = 1 limit 1`},
		{"join", `select count("de") from ` + evt + ` join b on b.id = ` + evt + `.id where ` + corr + ` and "de" is not null and "de" = 1`},
		{"two columns", `select count("de"), 1 from ` + evt + ` where ` + corr + ` and "de" is not null and "de" = 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DataElementCountPattern{OuterAlias: "subax"}.Match(mustSelect(t, tt.sql))
			assert.False(t, ok)
		})
	}
}

// === Last event value ===

func TestLastEventValuePattern_Match(t *testing.T) {
	const corr = evt + `.enrollment = subax.enrollment`

	tests := []struct {
		name     string
		sql      string
		cte      string
		alias    string
		column   string
		metadata map[string]string
		def      string
	}{
		{
			name:     "scheduled date",
			sql:      `select scheduleddate from ` + evt + ` where ` + corr + ` and scheduleddate is not null order by occurreddate desc limit 1`,
			cte:      "last_sched",
			alias:    "ls",
			column:   "scheduleddate",
			metadata: map[string]string{"column": "scheduleddate"},
			def: `SELECT enrollment, scheduleddate FROM (SELECT enrollment, scheduleddate, row_number() OVER ` +
				`(PARTITION BY enrollment ORDER BY occurreddate DESC) AS rn FROM ` + evt +
				` WHERE scheduleddate IS NOT NULL) AS t WHERE rn = 1`,
		},
		{
			name:     "created",
			sql:      `select created from ` + evt + ` where created is not null and ` + corr + ` order by occurreddate desc limit 1`,
			cte:      "last_created",
			alias:    "lc",
			column:   "created",
			metadata: map[string]string{"column": "created"},
			def: `SELECT enrollment, created FROM (SELECT enrollment, created, row_number() OVER ` +
				`(PARTITION BY enrollment ORDER BY occurreddate DESC) AS rn FROM ` + evt +
				` WHERE created IS NOT NULL) AS t WHERE rn = 1`,
		},
		{
			name: "data element with stage",
			sql: `select "H6uSAMO5WLD" from ` + evt + ` where ps = 'A03MvHHogjR' and ` + corr +
				` and "H6uSAMO5WLD" is not null order by occurreddate desc limit 1`,
			cte:      "last_value_h6usamo5wld",
			alias:    "lv_h6usamo5wld",
			column:   `"H6uSAMO5WLD"`,
			metadata: map[string]string{"dataElementId": "H6uSAMO5WLD", "programStageId": "A03MvHHogjR"},
			def: `SELECT enrollment, "H6uSAMO5WLD" FROM (SELECT enrollment, "H6uSAMO5WLD", row_number() OVER ` +
				`(PARTITION BY enrollment ORDER BY occurreddate DESC) AS rn FROM ` + evt +
				` WHERE "H6uSAMO5WLD" IS NOT NULL AND ps = 'A03MvHHogjR') AS t WHERE rn = 1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, ok := LastEventValuePattern{OuterAlias: "subax"}.Match(mustSelect(t, tt.sql))
			require.True(t, ok)
			assert.Equal(t, tt.cte, found.CanonicalName)
			assert.Equal(t, tt.alias, found.JoinAlias)
			assert.Equal(t, tt.column, found.CTEColumnReference)
			assert.Equal(t, tt.metadata, found.Metadata)
			assert.False(t, found.CoalesceZero)
			assert.Equal(t, tt.def, sqlparse.Format(found.Definition))
		})
	}
}

func TestLastEventValuePattern_NoMatch(t *testing.T) {
	const corr = evt + `.enrollment = subax.enrollment`

	tests := []struct {
		name string
		sql  string
	}{
		{"ascending", `select created from ` + evt + ` where ` + corr + ` and created is not null order by occurreddate limit 1`},
		{"other order column", `select created from ` + evt + ` where ` + corr + ` and created is not null order by created desc limit 1`},
		{"nulls first", `select created from ` + evt + ` where ` + corr + ` and created is not null order by occurreddate desc nulls first limit 1`},
		{"no limit", `select created from ` + evt + ` where ` + corr + ` and created is not null order by occurreddate desc`},
		{"limit two", `select created from ` + evt + ` where ` + corr + ` and created is not null order by occurreddate desc limit 2`},
		{"offset", `select created from ` + evt + ` where ` + corr + ` and created is not null order by occurreddate desc limit 1 offset 1`},
		{"unquoted other column", `select value from ` + evt + ` where ` + corr + ` and value is not null order by occurreddate desc limit 1`},
		{"missing not null", `select created from ` + evt + ` where ` + corr + ` order by occurreddate desc limit 1`},
		{"missing correlation", `select created from ` + evt + ` where created is not null order by occurreddate desc limit 1`},
		{"extra conjunct", `select created from ` + evt + ` where ` + corr + ` and created is not null and deleted = false order by occurreddate desc limit 1`},
		{"expression column", `select created + 1 from ` + evt + ` where ` + corr + ` and created is not null order by occurreddate desc limit 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := LastEventValuePattern{OuterAlias: "subax"}.Match(mustSelect(t, tt.sql))
			assert.False(t, ok)
		})
	}
}

// === Relationship count ===

func TestRelationshipCountPattern_Match(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		cte      string
		metadata map[string]string
		def      string
	}{
		{
			name:     "aggregated",
			sql:      `select sum(relationship_count) from analytics_rs_relationship arr where arr.trackedentityid = subax.trackedentity`,
			cte:      "relationship_count_agg",
			metadata: map[string]string{},
			def: `SELECT trackedentityid, sum(relationship_count) AS relationship_count ` +
				`FROM analytics_rs_relationship GROUP BY trackedentityid`,
		},
		{
			name: "typed literal",
			sql: `select relationship_count from analytics_rs_relationship
				where relationshiptypeuid = 'dk34dj3xyzq' and analytics_rs_relationship.trackedentityid = subax.trackedentity`,
			cte:      "relationship_count",
			metadata: map[string]string{"relationshipTypeId": "dk34dj3xyzq"},
			def:      `SELECT trackedentityid, relationship_count FROM analytics_rs_relationship WHERE relationshiptypeuid = 'dk34dj3xyzq'`,
		},
		{
			name: "typed parameter",
			sql: `select arr.relationship_count from analytics_rs_relationship arr
				where arr.trackedentityid = subax.trackedentity and arr.relationshiptypeuid = $2`,
			cte:      "relationship_count",
			metadata: map[string]string{"relationshipTypeId": "$2"},
			def:      `SELECT trackedentityid, relationship_count FROM analytics_rs_relationship WHERE relationshiptypeuid = $2`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, ok := RelationshipCountPattern{OuterAlias: "subax"}.Match(mustSelect(t, tt.sql))
			require.True(t, ok)
			assert.Equal(t, tt.cte, found.CanonicalName)
			assert.Equal(t, "rlc", found.JoinAlias)
			assert.Equal(t, "relationship_count", found.CTEColumnReference)
			assert.Equal(t, "trackedentity", found.OuterColumn)
			assert.Equal(t, "trackedentityid", found.CTEJoinColumn)
			assert.False(t, found.CoalesceZero, "a missing relationship row stays NULL")
			assert.Equal(t, tt.metadata, found.Metadata)
			assert.Equal(t, tt.def, sqlparse.Format(found.Definition))
		})
	}
}

func TestRelationshipCountPattern_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"aggregated with type", `select sum(relationship_count) from analytics_rs_relationship arr where arr.trackedentityid = subax.trackedentity and relationshiptypeuid = 'x'`},
		{"other table", `select sum(relationship_count) from relationships arr where arr.trackedentityid = subax.trackedentity`},
		{"other aggregate", `select max(relationship_count) from analytics_rs_relationship arr where arr.trackedentityid = subax.trackedentity`},
		{"other column", `select relationshiptypeuid from analytics_rs_relationship arr where arr.trackedentityid = subax.trackedentity`},
		{"correlated on enrollment", `select sum(relationship_count) from analytics_rs_relationship arr where arr.trackedentityid = subax.enrollment`},
		{"uncorrelated", `select sum(relationship_count) from analytics_rs_relationship`},
		{"untyped row count", `select relationship_count from analytics_rs_relationship arr where arr.trackedentityid = subax.trackedentity`},
		{"untyped qualified row count", `select arr.relationship_count from analytics_rs_relationship arr where arr.trackedentityid = subax.trackedentity`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := RelationshipCountPattern{OuterAlias: "subax"}.Match(mustSelect(t, tt.sql))
			assert.False(t, ok)
		})
	}
}

// === Registry ===

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, DefaultOuterAlias, r.OuterAlias())
	require.Len(t, r.Patterns(), 3)
	assert.Equal(t, "de_count", r.Patterns()[0].Name())
	assert.Equal(t, "last_value", r.Patterns()[1].Name())
	assert.Equal(t, "relationship_count", r.Patterns()[2].Name())

	found, ok := r.Match(mustSelect(t, `select created from `+evt+` where `+evt+`.enrollment = subax.enrollment
		and created is not null order by occurreddate desc limit 1`))
	require.True(t, ok)
	assert.Equal(t, "last_created", found.CanonicalName)

	_, ok = r.Match(mustSelect(t, `select 1`))
	assert.False(t, ok)
}

func TestRegistry_OuterAlias(t *testing.T) {
	sql := `select created from ` + evt + ` where ` + evt + `.enrollment = ax.enrollment
		and created is not null order by occurreddate desc limit 1`

	_, ok := NewRegistry().Match(mustSelect(t, sql))
	assert.False(t, ok)

	_, ok = NewRegistry(WithOuterAlias("ax")).Match(mustSelect(t, sql))
	assert.True(t, ok)
}

func TestRegistry_WithPatterns(t *testing.T) {
	r := NewRegistry(WithPatterns(RelationshipCountPattern{OuterAlias: "subax"}))
	_, ok := r.Match(mustSelect(t, `select created from `+evt+` where `+evt+`.enrollment = subax.enrollment
		and created is not null order by occurreddate desc limit 1`))
	assert.False(t, ok)
}
