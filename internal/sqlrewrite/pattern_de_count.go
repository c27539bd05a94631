package sqlrewrite

import (
	"strings"

	"trackerql/internal/sqlparse"
)

// DataElementCountPattern matches
//
//	(SELECT count(<de>) FROM analytics_event_<p>
//	 WHERE <t>.enrollment = subax.enrollment AND <de> IS NOT NULL
//	   AND <de> = <value> [AND ps = <stage>])
//
// with the conjuncts in any order.
type DataElementCountPattern struct {
	OuterAlias string
}

// Name implements Pattern.
func (DataElementCountPattern) Name() string { return "de_count" }

// Match implements Pattern.
func (p DataElementCountPattern) Match(sel *sqlparse.SelectStmt) (FoundSubSelect, bool) {
	sc, table, ok := plainCore(sel)
	if !ok || !isEventTable(table) || len(sc.OrderBy) > 0 || sc.Limit != nil {
		return FoundSubSelect{}, false
	}
	fn, ok := sc.Columns[0].Expr.(*sqlparse.FuncCall)
	if !ok || !strings.EqualFold(fn.Name, "count") || fn.Star || fn.Distinct || fn.Window != nil || len(fn.Args) != 1 {
		return FoundSubSelect{}, false
	}
	de, ok := ownColumn(fn.Args[0], table, true)
	if !ok {
		return FoundSubSelect{}, false
	}

	var (
		correlated, notNullSeen bool
		value, stage            sqlparse.Expr
		valueText, stageText    string
	)
	for _, c := range sqlparse.Conjuncts(sc.Where) {
		switch {
		case !correlated && isCorrelation(c, table, "enrollment", p.OuterAlias, "enrollment"):
			correlated = true
		case !notNullSeen && isNotNullOf(c, table, de):
			notNullSeen = true
		default:
			if v, text, ok := equalsConstant(c, table, de); ok && value == nil {
				value, valueText = v, text
				continue
			}
			if v, text, ok := equalsConstant(c, table, sqlparse.Plain("ps")); ok && stage == nil {
				stage, stageText = v, text
				continue
			}
			return FoundSubSelect{}, false
		}
	}
	if !correlated || !notNullSeen || value == nil {
		return FoundSubSelect{}, false
	}

	meta := map[string]string{"dataElementId": de.Name, "value": valueText}
	preds := []sqlparse.Expr{notNull(bareIdent(de)), eq(bareIdent(de), value)}
	if stage != nil {
		meta["programStageId"] = stageText
		preds = append(preds, eq(bare("ps"), stage))
	}

	def := selectOf(&sqlparse.SelectCore{
		Columns: []sqlparse.SelectItem{
			{Expr: bare("enrollment")},
			{Expr: &sqlparse.FuncCall{Name: "count", Args: []sqlparse.Expr{bareIdent(de)}}, Alias: sqlparse.Plain("de_count")},
		},
		From:    fromTable(table),
		Where:   sqlparse.AndAll(preds...),
		GroupBy: []sqlparse.Expr{bare("enrollment")},
	})

	return FoundSubSelect{
		CanonicalName:      "de_count_" + de.Name,
		CTEColumnReference: "de_count",
		Metadata:           meta,
		Definition:         def,
		JoinAlias:          "dec_" + strings.ToLower(de.Name),
		OuterColumn:        "enrollment",
		CTEJoinColumn:      "enrollment",
		CoalesceZero:       true,
	}, true
}
