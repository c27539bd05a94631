package domain

import "strings"

// QueryOperator is a filter operator in the OP:value request syntax.
type QueryOperator string

// Filter operators.
const (
	OpEQ      QueryOperator = "EQ"
	OpNE      QueryOperator = "NE"
	OpGT      QueryOperator = "GT"
	OpGE      QueryOperator = "GE"
	OpLT      QueryOperator = "LT"
	OpLE      QueryOperator = "LE"
	OpIn      QueryOperator = "IN"
	OpLike    QueryOperator = "LIKE"
	OpILike   QueryOperator = "ILIKE"
	OpNull    QueryOperator = "NULL"
	OpNotNull QueryOperator = "NNULL"
)

// nullValue is the request token for a missing value, as in EQ:NV.
const nullValue = "NV"

var operatorAliases = map[string]QueryOperator{
	"EQ": OpEQ, "NE": OpNE, "NEQ": OpNE,
	"GT": OpGT, "GE": OpGE, "LT": OpLT, "LE": OpLE,
	"IN": OpIn, "LIKE": OpLike, "ILIKE": OpILike,
	"NULL": OpNull, "NV": OpNull, "NNULL": OpNotNull,
}

// SQL returns the comparison operator for binary operators.
func (op QueryOperator) SQL() string {
	switch op {
	case OpEQ:
		return "="
	case OpNE:
		return "<>"
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpLike:
		return "LIKE"
	case OpILike:
		return "ILIKE"
	default:
		return ""
	}
}

// Filter is a parsed dimension filter.
type Filter struct {
	Operator QueryOperator
	Values   []string
}

// Value returns the first operand.
func (f Filter) Value() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

func (f Filter) String() string {
	if len(f.Values) == 0 {
		return string(f.Operator)
	}
	return string(f.Operator) + ":" + strings.Join(f.Values, ";")
}

// ParseFilter parses "GT:5", "IN:a;b" or "EQ:NV".
func ParseFilter(s string) (Filter, error) {
	opText, value, hasValue := strings.Cut(strings.TrimSpace(s), ":")
	op, ok := operatorAliases[strings.ToUpper(opText)]
	if !ok {
		return Filter{}, ErrValidation("unknown filter operator %q", opText)
	}

	switch {
	case op == OpNull || op == OpNotNull:
		return Filter{Operator: op}, nil
	case !hasValue || value == "":
		return Filter{}, ErrValidation("filter %q requires a value", s)
	case value == nullValue && op == OpEQ:
		return Filter{Operator: OpNull}, nil
	case value == nullValue && op == OpNE:
		return Filter{Operator: OpNotNull}, nil
	case op == OpIn:
		var values []string
		for _, v := range strings.Split(value, ";") {
			if v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Filter{}, ErrValidation("filter %q requires a value", s)
		}
		return Filter{Operator: op, Values: values}, nil
	default:
		return Filter{Operator: op, Values: []string{value}}, nil
	}
}
