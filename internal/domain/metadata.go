package domain

// TrackedEntityType names the analytics tables a query runs against.
type TrackedEntityType struct {
	UID  string `json:"uid" yaml:"uid"`
	Name string `json:"name" yaml:"name"`
}

// Program is a tracker program enrolling one tracked entity type.
type Program struct {
	UID               string `json:"uid" yaml:"uid"`
	Name              string `json:"name" yaml:"name"`
	TrackedEntityType string `json:"tracked_entity_type" yaml:"trackedEntityType"`
}

// ProgramStage is a repeatable or single stage of a program.
type ProgramStage struct {
	UID        string `json:"uid" yaml:"uid"`
	Name       string `json:"name" yaml:"name"`
	Program    string `json:"program" yaml:"program"`
	Repeatable bool   `json:"repeatable" yaml:"repeatable"`
}

// DataElement is a value captured in events.
type DataElement struct {
	UID       string    `json:"uid" yaml:"uid"`
	Name      string    `json:"name" yaml:"name"`
	ValueType ValueType `json:"value_type" yaml:"valueType"`
}

// Attribute is a tracked entity attribute.
type Attribute struct {
	UID       string    `json:"uid" yaml:"uid"`
	Name      string    `json:"name" yaml:"name"`
	ValueType ValueType `json:"value_type" yaml:"valueType"`
}

// ResolvedDimension is a dimension identifier checked against metadata.
type ResolvedDimension struct {
	Identifier DimensionIdentifier
	Name       string
	ValueType  ValueType
}

// Mapping returns how the dimension's values are compared in SQL.
func (r ResolvedDimension) Mapping() ValueTypeMapping {
	return MapValueType(r.ValueType)
}
