package domain

import "strconv"

// Offset selects one element from a date-ordered sequence of enrollments or
// events. The zero value is index 0, the most recent element.
type Offset struct {
	index     int
	unbounded bool
}

// AbsoluteOffset returns an offset at index i. Negative and zero indexes
// count back from the most recent element, positive ones count forward from
// the oldest.
func AbsoluteOffset(i int) Offset {
	return Offset{index: i}
}

// UnboundedOffset returns an offset that matches every element.
func UnboundedOffset() Offset {
	return Offset{unbounded: true}
}

// IsUnbounded reports whether the offset matches every element.
func (o Offset) IsUnbounded() bool { return o.unbounded }

// Index returns the absolute index. It is 0 for an unbounded offset.
func (o Offset) Index() int { return o.index }

// IsFromMostRecent reports whether the index counts back from the most
// recent element.
func (o Offset) IsFromMostRecent() bool {
	return !o.unbounded && o.index <= 0
}

// RowOffset returns the SQL OFFSET against the sequence ordered so that the
// element the index counts from comes first.
func (o Offset) RowOffset() int {
	switch {
	case o.unbounded:
		return 0
	case o.index < 0:
		return -o.index - 1
	case o.index == 0:
		return 0
	default:
		return o.index - 1
	}
}

func (o Offset) String() string {
	if o.unbounded {
		return "[*]"
	}
	return "[" + strconv.Itoa(o.index) + "]"
}
