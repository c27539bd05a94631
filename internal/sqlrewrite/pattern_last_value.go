package sqlrewrite

import (
	"strings"

	"trackerql/internal/sqlparse"
)

// LastEventValuePattern matches the most recent non-null value of one event
// column for the outer enrollment:
//
//	(SELECT <col> FROM analytics_event_<p>
//	 WHERE <t>.enrollment = subax.enrollment AND <col> IS NOT NULL [AND ps = <stage>]
//	 ORDER BY occurreddate DESC LIMIT 1)
//
// <col> is scheduleddate, created or a quoted data element column.
type LastEventValuePattern struct {
	OuterAlias string
}

// Name implements Pattern.
func (LastEventValuePattern) Name() string { return "last_value" }

// Match implements Pattern.
func (p LastEventValuePattern) Match(sel *sqlparse.SelectStmt) (FoundSubSelect, bool) {
	sc, table, ok := plainCore(sel)
	if !ok || !isEventTable(table) || sc.Limit == nil || !isLimitOne(sc.Limit) {
		return FoundSubSelect{}, false
	}
	if len(sc.OrderBy) != 1 {
		return FoundSubSelect{}, false
	}
	order := sc.OrderBy[0]
	if !order.Desc || order.NullsFirst != nil || !isOwnColumn(order.Expr, table, sqlparse.Plain("occurreddate")) {
		return FoundSubSelect{}, false
	}
	col, ok := ownColumn(sc.Columns[0].Expr, table, true)
	if !ok {
		return FoundSubSelect{}, false
	}

	var (
		correlated, notNullSeen bool
		stage                   sqlparse.Expr
		stageText               string
	)
	for _, c := range sqlparse.Conjuncts(sc.Where) {
		switch {
		case !correlated && isCorrelation(c, table, "enrollment", p.OuterAlias, "enrollment"):
			correlated = true
		case !notNullSeen && isNotNullOf(c, table, col):
			notNullSeen = true
		default:
			if v, text, ok := equalsConstant(c, table, sqlparse.Plain("ps")); ok && stage == nil {
				stage, stageText = v, text
				continue
			}
			return FoundSubSelect{}, false
		}
	}
	if !correlated || !notNullSeen {
		return FoundSubSelect{}, false
	}

	found := FoundSubSelect{
		CTEColumnReference: col.String(),
		OuterColumn:        "enrollment",
		CTEJoinColumn:      "enrollment",
		valueColumn:        col,
	}
	switch {
	case !col.Quoted && col.Is("scheduleddate"):
		found.CanonicalName, found.JoinAlias = "last_sched", "ls"
		found.Metadata = map[string]string{"column": "scheduleddate"}
	case !col.Quoted && col.Is("created"):
		found.CanonicalName, found.JoinAlias = "last_created", "lc"
		found.Metadata = map[string]string{"column": "created"}
	case col.Quoted:
		lower := strings.ToLower(col.Name)
		found.CanonicalName, found.JoinAlias = "last_value_"+lower, "lv_"+lower
		found.Metadata = map[string]string{"dataElementId": col.Name}
	default:
		return FoundSubSelect{}, false
	}
	if stage != nil {
		found.Metadata["programStageId"] = stageText
	}
	found.Definition = lastValueDefinition(table, col, stage)
	return found, true
}

// lastValueDefinition ranks events per enrollment and keeps the newest one.
func lastValueDefinition(table *sqlparse.TableName, col sqlparse.Ident, stage sqlparse.Expr) *sqlparse.SelectStmt {
	var where sqlparse.Expr = notNull(bareIdent(col))
	if stage != nil {
		where = sqlparse.AndAll(where, eq(bare("ps"), stage))
	}
	ranked := selectOf(&sqlparse.SelectCore{
		Columns: []sqlparse.SelectItem{
			{Expr: bare("enrollment")},
			{Expr: bareIdent(col)},
			{
				Expr: &sqlparse.FuncCall{
					Name: "row_number",
					Window: &sqlparse.WindowSpec{
						PartitionBy: []sqlparse.Expr{bare("enrollment")},
						OrderBy:     []sqlparse.OrderByItem{{Expr: bare("occurreddate"), Desc: true}},
					},
				},
				Alias: sqlparse.Plain("rn"),
			},
		},
		From:  fromTable(table),
		Where: where,
	})
	return selectOf(&sqlparse.SelectCore{
		Columns: []sqlparse.SelectItem{{Expr: bare("enrollment")}, {Expr: bareIdent(col)}},
		From: &sqlparse.FromClause{
			Source: &sqlparse.DerivedTable{Select: ranked, Alias: sqlparse.Plain("t")},
		},
		Where: eq(bare("rn"), &sqlparse.Literal{Type: sqlparse.LiteralNumber, Value: "1"}),
	})
}
