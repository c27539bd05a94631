package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var uidPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]{10}$`)

// IsValidUID reports whether s is an 11 character identifier starting with a letter.
func IsValidUID(s string) bool {
	return uidPattern.MatchString(s)
}

// ProgramRef identifies a program and which enrollment in it to use.
type ProgramRef struct {
	UID    string
	Offset Offset
}

// ProgramStageRef identifies a program stage and which event in it to use.
type ProgramStageRef struct {
	UID    string
	Offset Offset
}

// DimensionRef identifies the dimension item: a data element for staged
// dimensions, otherwise a tracked entity attribute.
type DimensionRef struct {
	UID       string
	ValueType ValueType
}

// DimensionLevel classifies where a dimension's value lives.
type DimensionLevel string

// Dimension levels.
const (
	LevelTrackedEntity DimensionLevel = "TRACKED_ENTITY"
	LevelEnrollment    DimensionLevel = "ENROLLMENT"
	LevelEvent         DimensionLevel = "EVENT"
)

// DimensionIdentifier is a program / program stage / dimension tuple with
// temporal offsets. Values are immutable; the With methods return copies.
type DimensionIdentifier struct {
	Program      *ProgramRef
	ProgramStage *ProgramStageRef
	Dimension    DimensionRef
	Offset       Offset
}

// NewTrackedEntityDimension identifies a tracked entity attribute.
func NewTrackedEntityDimension(dimUID string) (DimensionIdentifier, error) {
	if !IsValidUID(dimUID) {
		return DimensionIdentifier{}, ErrValidation("invalid dimension uid %q", dimUID)
	}
	return DimensionIdentifier{Dimension: DimensionRef{UID: dimUID}}, nil
}

// NewEnrollmentDimension identifies an attribute read through an enrollment
// of the given program.
func NewEnrollmentDimension(program ProgramRef, dimUID string) (DimensionIdentifier, error) {
	if !IsValidUID(program.UID) {
		return DimensionIdentifier{}, ErrValidation("invalid program uid %q", program.UID)
	}
	if !IsValidUID(dimUID) {
		return DimensionIdentifier{}, ErrValidation("invalid dimension uid %q", dimUID)
	}
	p := program
	return DimensionIdentifier{Program: &p, Dimension: DimensionRef{UID: dimUID}}, nil
}

// NewEventDimension identifies a data element captured in events of the
// given program stage.
func NewEventDimension(program ProgramRef, stage ProgramStageRef, dimUID string) (DimensionIdentifier, error) {
	if !IsValidUID(program.UID) {
		return DimensionIdentifier{}, ErrValidation("invalid program uid %q", program.UID)
	}
	if !IsValidUID(stage.UID) {
		return DimensionIdentifier{}, ErrValidation("invalid program stage uid %q", stage.UID)
	}
	if !IsValidUID(dimUID) {
		return DimensionIdentifier{}, ErrValidation("invalid dimension uid %q", dimUID)
	}
	p, s := program, stage
	return DimensionIdentifier{
		Program:      &p,
		ProgramStage: &s,
		Dimension:    DimensionRef{UID: dimUID},
		Offset:       stage.Offset,
	}, nil
}

// IsTrackedEntityDimension reports whether the dimension has no program.
func (d DimensionIdentifier) IsTrackedEntityDimension() bool {
	return d.Program == nil
}

// IsEnrollmentDimension reports whether the dimension has a program but no stage.
func (d DimensionIdentifier) IsEnrollmentDimension() bool {
	return d.Program != nil && d.ProgramStage == nil
}

// IsEventDimension reports whether the dimension has a program and a stage.
func (d DimensionIdentifier) IsEventDimension() bool {
	return d.Program != nil && d.ProgramStage != nil
}

// Level returns the dimension's level.
func (d DimensionIdentifier) Level() DimensionLevel {
	switch {
	case d.IsEventDimension():
		return LevelEvent
	case d.IsEnrollmentDimension():
		return LevelEnrollment
	default:
		return LevelTrackedEntity
	}
}

// WithValueType returns a copy carrying the resolved value type.
func (d DimensionIdentifier) WithValueType(vt ValueType) DimensionIdentifier {
	out := d.clone()
	out.Dimension.ValueType = vt
	return out
}

func (d DimensionIdentifier) clone() DimensionIdentifier {
	out := d
	if d.Program != nil {
		p := *d.Program
		out.Program = &p
	}
	if d.ProgramStage != nil {
		s := *d.ProgramStage
		out.ProgramStage = &s
	}
	return out
}

// Key returns the canonical request form, e.g. "IpHINAT79UW[-1].A03MvHHogjR[2].a3kGcGDCuk6".
// Default offsets are omitted.
func (d DimensionIdentifier) Key() string {
	var b strings.Builder
	if d.Program != nil {
		b.WriteString(d.Program.UID)
		writeOffset(&b, d.Program.Offset)
		b.WriteByte('.')
	}
	if d.ProgramStage != nil {
		b.WriteString(d.ProgramStage.UID)
		writeOffset(&b, d.ProgramStage.Offset)
		b.WriteByte('.')
	}
	b.WriteString(d.Dimension.UID)
	return b.String()
}

func (d DimensionIdentifier) String() string { return d.Key() }

func writeOffset(b *strings.Builder, o Offset) {
	if o != (Offset{}) {
		b.WriteString(o.String())
	}
}

// ParseDimensionIdentifier parses the request syntax prg[-1].stg[2].dim.
// One segment is a tracked entity dimension, two an enrollment dimension
// and three an event dimension. Program and stage segments accept an
// optional [n] or [*] suffix.
func ParseDimensionIdentifier(s string) (DimensionIdentifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DimensionIdentifier{}, ErrValidation("dimension is required")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return DimensionIdentifier{}, ErrValidation("dimension %q has more than 3 segments", s)
	}

	segs := make([]segment, len(parts))
	for i, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return DimensionIdentifier{}, ErrValidation("dimension %q: %s", s, err.Message)
		}
		segs[i] = seg
	}

	last := segs[len(segs)-1]
	if last.hasOffset {
		return DimensionIdentifier{}, ErrValidation("dimension %q: offset is only allowed on program and program stage", s)
	}

	switch len(segs) {
	case 1:
		return NewTrackedEntityDimension(last.uid)
	case 2:
		return NewEnrollmentDimension(ProgramRef{UID: segs[0].uid, Offset: segs[0].offset}, last.uid)
	default:
		return NewEventDimension(
			ProgramRef{UID: segs[0].uid, Offset: segs[0].offset},
			ProgramStageRef{UID: segs[1].uid, Offset: segs[1].offset},
			last.uid,
		)
	}
}

type segment struct {
	uid       string
	offset    Offset
	hasOffset bool
}

func parseSegment(p string) (segment, *ValidationError) {
	open := strings.IndexByte(p, '[')
	if open < 0 {
		if p == "" {
			return segment{}, ErrValidation("empty segment")
		}
		return segment{uid: p}, nil
	}
	if !strings.HasSuffix(p, "]") || open == 0 {
		return segment{}, ErrValidation("malformed segment %q", p)
	}

	seg := segment{uid: p[:open], hasOffset: true}
	raw := p[open+1 : len(p)-1]
	if raw == "*" {
		seg.offset = UnboundedOffset()
		return seg, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return segment{}, ErrValidation("invalid offset %q", raw)
	}
	seg.offset = AbsoluteOffset(n)
	return seg, nil
}
