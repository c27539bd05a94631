package sqlir

import (
	"fmt"
	"strconv"
)

// Params is the positional bind parameter table of one statement.
// Identical values share a placeholder.
type Params struct {
	values []any
	index  map[string]int
}

// NewParams creates an empty table.
func NewParams() *Params {
	return &Params{index: make(map[string]int)}
}

// Add registers v and returns its placeholder, $1 for the first value.
func (p *Params) Add(v any) string {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	key := fmt.Sprintf("%T\x00%v", v, v)
	if n, ok := p.index[key]; ok {
		return placeholder(n)
	}
	p.values = append(p.values, v)
	n := len(p.values)
	p.index[key] = n
	return placeholder(n)
}

// Values returns the bound values in placeholder order.
func (p *Params) Values() []any {
	out := make([]any, len(p.values))
	copy(out, p.values)
	return out
}

// Len returns the number of distinct values.
func (p *Params) Len() int { return len(p.values) }

func placeholder(n int) string { return "$" + strconv.Itoa(n) }
