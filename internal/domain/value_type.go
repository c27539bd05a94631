package domain

import (
	"strconv"
	"strings"
)

// ValueType is the type of a data element or tracked entity attribute.
type ValueType string

// Value types.
const (
	ValueTypeText                  ValueType = "TEXT"
	ValueTypeLongText              ValueType = "LONG_TEXT"
	ValueTypeLetter                ValueType = "LETTER"
	ValueTypePhoneNumber           ValueType = "PHONE_NUMBER"
	ValueTypeEmail                 ValueType = "EMAIL"
	ValueTypeBoolean               ValueType = "BOOLEAN"
	ValueTypeTrueOnly              ValueType = "TRUE_ONLY"
	ValueTypeDate                  ValueType = "DATE"
	ValueTypeDateTime              ValueType = "DATETIME"
	ValueTypeTime                  ValueType = "TIME"
	ValueTypeNumber                ValueType = "NUMBER"
	ValueTypeUnitInterval          ValueType = "UNIT_INTERVAL"
	ValueTypePercentage            ValueType = "PERCENTAGE"
	ValueTypeInteger               ValueType = "INTEGER"
	ValueTypeIntegerPositive       ValueType = "INTEGER_POSITIVE"
	ValueTypeIntegerNegative       ValueType = "INTEGER_NEGATIVE"
	ValueTypeIntegerZeroOrPositive ValueType = "INTEGER_ZERO_OR_POSITIVE"
	ValueTypeTrackerAssociate      ValueType = "TRACKER_ASSOCIATE"
	ValueTypeUsername              ValueType = "USERNAME"
	ValueTypeCoordinate            ValueType = "COORDINATE"
	ValueTypeOrganisationUnit      ValueType = "ORGANISATION_UNIT"
	ValueTypeReference             ValueType = "REFERENCE"
	ValueTypeAge                   ValueType = "AGE"
	ValueTypeURL                   ValueType = "URL"
	ValueTypeFileResource          ValueType = "FILE_RESOURCE"
	ValueTypeImage                 ValueType = "IMAGE"
	ValueTypeGeoJSON               ValueType = "GEOJSON"
	ValueTypeMultiText             ValueType = "MULTI_TEXT"
)

var validValueTypes = map[ValueType]bool{
	ValueTypeText: true, ValueTypeLongText: true, ValueTypeLetter: true,
	ValueTypePhoneNumber: true, ValueTypeEmail: true, ValueTypeBoolean: true,
	ValueTypeTrueOnly: true, ValueTypeDate: true, ValueTypeDateTime: true,
	ValueTypeTime: true, ValueTypeNumber: true, ValueTypeUnitInterval: true,
	ValueTypePercentage: true, ValueTypeInteger: true, ValueTypeIntegerPositive: true,
	ValueTypeIntegerNegative: true, ValueTypeIntegerZeroOrPositive: true,
	ValueTypeTrackerAssociate: true, ValueTypeUsername: true, ValueTypeCoordinate: true,
	ValueTypeOrganisationUnit: true, ValueTypeReference: true, ValueTypeAge: true,
	ValueTypeURL: true, ValueTypeFileResource: true, ValueTypeImage: true,
	ValueTypeGeoJSON: true, ValueTypeMultiText: true,
}

// ParseValueType converts a value type name, case-insensitively.
func ParseValueType(s string) (ValueType, error) {
	vt := ValueType(strings.ToUpper(strings.TrimSpace(s)))
	if !validValueTypes[vt] {
		return "", ErrValidation("unknown value type %q", s)
	}
	return vt, nil
}

// Valid reports whether vt is a known value type.
func (vt ValueType) Valid() bool { return validValueTypes[vt] }

// ValueTypeMapping groups value types by how their stored text is compared in SQL.
type ValueTypeMapping int

// Mappings in match order. MappingString accepts every value type.
const (
	MappingNumeric ValueTypeMapping = iota
	MappingString
)

var mappingOrder = []ValueTypeMapping{MappingNumeric, MappingString}

var numericValueTypes = map[ValueType]bool{
	ValueTypeInteger:               true,
	ValueTypeIntegerPositive:       true,
	ValueTypeIntegerNegative:       true,
	ValueTypeIntegerZeroOrPositive: true,
}

// MapValueType returns the first mapping whose allow-list contains vt.
func MapValueType(vt ValueType) ValueTypeMapping {
	for _, m := range mappingOrder {
		if m.accepts(vt) {
			return m
		}
	}
	return MappingString
}

func (m ValueTypeMapping) accepts(vt ValueType) bool {
	switch m {
	case MappingNumeric:
		return numericValueTypes[vt]
	default:
		return true
	}
}

// CastTarget returns the SQL type the stored text is cast to.
func (m ValueTypeMapping) CastTarget() string {
	if m == MappingNumeric {
		return "numeric"
	}
	return "text"
}

// BindValue converts a request literal into a bind parameter value.
func (m ValueTypeMapping) BindValue(literal string) (any, error) {
	if m != MappingNumeric {
		return literal, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
	if err != nil {
		return nil, ErrValidation("value %q is not an integer", literal)
	}
	return n, nil
}

func (m ValueTypeMapping) String() string {
	if m == MappingNumeric {
		return "NUMERIC"
	}
	return "STRING"
}
