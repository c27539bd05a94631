// Package compiler translates tracker analytics requests into the sqlir
// representation: select elements into columns, dimension filters into
// nested correlated EXISTS conditions, and a request into a complete query.
package compiler

import "strings"

// TrackedEntityAlias is the alias of the tracked entity table in every query.
const TrackedEntityAlias = "t_1"

// Tables names the analytics tables of one tracked entity type.
type Tables struct {
	TrackedEntity  string
	Enrollment     string
	Event          string
	AttributeValue string
}

// TablesFor returns the tables for a tracked entity type.
func TablesFor(trackedEntityType string) Tables {
	tet := strings.ToLower(trackedEntityType)
	return Tables{
		TrackedEntity:  "analytics_te_" + tet,
		Enrollment:     "analytics_te_enrollment_" + tet,
		Event:          "analytics_te_event_" + tet,
		AttributeValue: "trackedentityattributevalue",
	}
}

func col(alias, name string) string { return alias + "." + name }
