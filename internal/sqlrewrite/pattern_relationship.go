package sqlrewrite

import (
	"strings"

	"trackerql/internal/sqlparse"
)

// RelationshipTable holds one row per tracked entity and relationship type.
const RelationshipTable = "analytics_rs_relationship"

// RelationshipCountPattern matches relationship counts for the outer
// tracked entity, either summed over all types:
//
//	(SELECT sum(relationship_count) FROM analytics_rs_relationship
//	 WHERE <t>.trackedentityid = subax.trackedentity)
//
// or for a single type:
//
//	(SELECT relationship_count FROM analytics_rs_relationship
//	 WHERE <t>.trackedentityid = subax.trackedentity AND relationshiptypeuid = <type>)
type RelationshipCountPattern struct {
	OuterAlias string
}

// Name implements Pattern.
func (RelationshipCountPattern) Name() string { return "relationship_count" }

// Match implements Pattern.
func (p RelationshipCountPattern) Match(sel *sqlparse.SelectStmt) (FoundSubSelect, bool) {
	sc, table, ok := plainCore(sel)
	if !ok || !table.Name.Is(RelationshipTable) || len(sc.OrderBy) > 0 || sc.Limit != nil {
		return FoundSubSelect{}, false
	}
	countCol := sqlparse.Plain("relationship_count")

	var aggregated bool
	switch e := sc.Columns[0].Expr.(type) {
	case *sqlparse.FuncCall:
		if !strings.EqualFold(e.Name, "sum") || e.Star || e.Distinct || e.Window != nil ||
			len(e.Args) != 1 || !isOwnColumn(e.Args[0], table, countCol) {
			return FoundSubSelect{}, false
		}
		aggregated = true
	default:
		if !isOwnColumn(e, table, countCol) {
			return FoundSubSelect{}, false
		}
	}

	var (
		correlated bool
		relType    sqlparse.Expr
		typeText   string
	)
	for _, c := range sqlparse.Conjuncts(sc.Where) {
		if !correlated && isCorrelation(c, table, "trackedentityid", p.OuterAlias, "trackedentity") {
			correlated = true
			continue
		}
		if v, text, ok := equalsConstant(c, table, sqlparse.Plain("relationshiptypeuid")); ok && relType == nil && !aggregated {
			relType, typeText = v, text
			continue
		}
		return FoundSubSelect{}, false
	}
	// Untyped per-row counts would join one row per relationship type.
	if !correlated || (!aggregated && relType == nil) {
		return FoundSubSelect{}, false
	}

	found := FoundSubSelect{
		CTEColumnReference: "relationship_count",
		Metadata:           map[string]string{},
		JoinAlias:          "rlc",
		OuterColumn:        "trackedentity",
		CTEJoinColumn:      "trackedentityid",
	}
	core := &sqlparse.SelectCore{
		From: &sqlparse.FromClause{Source: &sqlparse.TableName{Name: sqlparse.Plain(RelationshipTable)}},
	}
	if aggregated {
		found.CanonicalName = "relationship_count_agg"
		core.Columns = []sqlparse.SelectItem{
			{Expr: bare("trackedentityid")},
			{Expr: &sqlparse.FuncCall{Name: "sum", Args: []sqlparse.Expr{bare("relationship_count")}}, Alias: countCol},
		}
		core.GroupBy = []sqlparse.Expr{bare("trackedentityid")}
	} else {
		found.CanonicalName = "relationship_count"
		core.Columns = []sqlparse.SelectItem{{Expr: bare("trackedentityid")}, {Expr: bare("relationship_count")}}
		found.Metadata["relationshipTypeId"] = typeText
		core.Where = eq(bare("relationshiptypeuid"), relType)
	}
	found.Definition = selectOf(core)
	return found, true
}
