package schema

import (
	"fmt"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
)

// Physical attribute names shared by every generated model.
const (
	AttrPartitionKey = ddbsdk.AttrPartitionKey
	AttrSortKey      = ddbsdk.AttrSortKey
	AttrEntityType   = ddbsdk.AttrEntityType
	AttrVersion      = ddbsdk.AttrVersion
	AttrCreatedAt    = ddbsdk.AttrCreatedAt
	AttrUpdatedAt    = ddbsdk.AttrUpdatedAt
	AttrTTL          = ddbsdk.AttrTTL
)

// Logical names of the server managed fields every model carries.
const (
	FieldID        = "id"
	FieldVersion   = "version"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// IndexPartitionAttr is the physical attribute holding a GSI partition key.
func IndexPartitionAttr(index string) string { return index + "_pk" }

// IndexSortAttr is the physical attribute holding a GSI or LSI sort key.
func IndexSortAttr(index string) string { return index + "_sk" }

// KeyShape is the primary key shape of a table.
type KeyShape string

const (
	KeyShapeSimple    KeyShape = "simple"
	KeyShapeComposite KeyShape = "composite"
)

// Table is a physical table backing one or more models.
type Table struct {
	Name                string
	KeyShape            KeyShape
	GSIs                []IndexDefinition
	LSIs                []IndexDefinition
	TTL                 bool
	Stream              bool
	PointInTimeRecovery bool
	Models              []Model
}

// IndexDefinition is the table level view of a secondary index: the
// attributes it is keyed on, independent of the models writing to it.
type IndexDefinition struct {
	Name          string
	PartitionAttr string
	SortAttr      string // empty when the index has no sort key
	Projection    Projection
}

// Model returns the model with the given name.
func (t Table) Model(name string) (Model, bool) {
	for _, m := range t.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// HasSortKey reports whether the table has a composite primary key.
func (t Table) HasSortKey() bool {
	return t.KeyShape == KeyShapeComposite
}

// Model is a logical record type mapped into a table.
type Model struct {
	Name           string
	Table          string
	Fields         []Field
	PrimaryKey     PrimaryKeyConfig
	Indexes        []SecondaryIndex
	TTL            *TTLConfig
	CDC            ChangeDataCaptureConfig // nil when the model declares no CDC
	ConsistentRead bool
}

// Field returns the field with the given logical name.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// UserFields are the fields a caller supplies: everything except the server
// managed ones and computed fields.
func (m Model) UserFields() []Field {
	var out []Field
	for _, f := range m.Fields {
		if f.Role.ServerManaged() || f.Compute != "" {
			continue
		}
		if f.Role == RoleTTL && m.TTL != nil && m.TTL.Duration > 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// KeyFieldNames returns the primary key field names, partition first.
func (m Model) KeyFieldNames() []string {
	switch pk := m.PrimaryKey.(type) {
	case SimpleKey:
		return append([]string(nil), pk.Partition.Fields...)
	case CompositeKey:
		names := append([]string(nil), pk.Partition.Fields...)
		return append(names, pk.Sort.Fields...)
	}
	return nil
}

// CreatedAtConflict returns the first of fields, the fields of one index key,
// that stops the key from being written once: a key using createdAt may only
// combine it with primary key fields. It returns "" when there is none.
func (m Model) CreatedAtConflict(fields []string) string {
	usesCreatedAt := false
	for _, name := range fields {
		if f, ok := m.Field(name); ok && f.Role == RoleCreatedAt {
			usesCreatedAt = true
		}
	}
	if !usesCreatedAt {
		return ""
	}
	immutable := map[string]bool{}
	for _, name := range m.KeyFieldNames() {
		immutable[name] = true
	}
	for _, name := range fields {
		if f, ok := m.Field(name); (ok && f.Role == RoleCreatedAt) || immutable[name] {
			continue
		}
		return name
	}
	return ""
}

// FieldRole marks fields whose value and column are owned by the data layer.
type FieldRole int

const (
	RoleNone FieldRole = iota
	RoleID
	RoleVersion
	RoleCreatedAt
	RoleUpdatedAt
	RoleTTL
)

func (r FieldRole) ServerManaged() bool {
	switch r {
	case RoleID, RoleVersion, RoleCreatedAt, RoleUpdatedAt:
		return true
	}
	return false
}

func (r FieldRole) String() string {
	switch r {
	case RoleID:
		return "id"
	case RoleVersion:
		return "version"
	case RoleCreatedAt:
		return "createdAt"
	case RoleUpdatedAt:
		return "updatedAt"
	case RoleTTL:
		return "ttl"
	}
	return "none"
}

// Field is one attribute of a model.
type Field struct {
	Name     string
	Column   string
	Type     FieldType
	Nullable bool
	// Compute names the function producing the value, resolved in the
	// generated package. Empty for plain fields.
	Compute string
	Role    FieldRole
}

// Scalar is the storage kind of a field.
type Scalar string

const (
	ScalarID       Scalar = "ID"
	ScalarString   Scalar = "String"
	ScalarInt      Scalar = "Int"
	ScalarFloat    Scalar = "Float"
	ScalarBoolean  Scalar = "Boolean"
	ScalarDateTime Scalar = "DateTime"
	ScalarDate     Scalar = "Date"
	ScalarEnum     Scalar = "Enum"
)

// IsTime reports whether values of the scalar are timestamps.
func (s Scalar) IsTime() bool {
	return s == ScalarDateTime || s == ScalarDate
}

type FieldType struct {
	Scalar Scalar
	Enum   string // enum type name when Scalar is ScalarEnum
	List   bool
}

func (t FieldType) String() string {
	name := string(t.Scalar)
	if t.Scalar == ScalarEnum {
		name = t.Enum
	}
	if t.List {
		return "[" + name + "]"
	}
	return name
}

// KeyFields is an ordered field list with a literal prefix. The order is
// significant: it is the concatenation order of the key string.
type KeyFields struct {
	Fields []string
	Prefix string
}

// PrimaryKeyConfig is either SimpleKey or CompositeKey.
type PrimaryKeyConfig interface {
	isPrimaryKeyConfig()
	Shape() KeyShape
}

type SimpleKey struct {
	Partition KeyFields
}

type CompositeKey struct {
	Partition KeyFields
	Sort      KeyFields
}

func (SimpleKey) isPrimaryKeyConfig()    {}
func (CompositeKey) isPrimaryKeyConfig() {}

func (SimpleKey) Shape() KeyShape    { return KeyShapeSimple }
func (CompositeKey) Shape() KeyShape { return KeyShapeComposite }

// Projection selects which attributes a secondary index carries.
type Projection string

const (
	ProjectionAll      Projection = "ALL"
	ProjectionKeysOnly Projection = "KEYS_ONLY"
)

// SecondaryIndex is either GSI or LSI.
type SecondaryIndex interface {
	isSecondaryIndex()
	IndexName() string
	IndexProjection() Projection
}

// GSI has a partition and optional sort key independent of the table's.
type GSI struct {
	Name       string
	Partition  KeyFields
	Sort       *KeyFields
	Projection Projection
}

// LSI shares the table's partition key and adds its own sort key.
type LSI struct {
	Name       string
	Sort       KeyFields
	Projection Projection
}

func (GSI) isSecondaryIndex() {}
func (LSI) isSecondaryIndex() {}

func (g GSI) IndexName() string { return g.Name }
func (l LSI) IndexName() string { return l.Name }

func (g GSI) IndexProjection() Projection { return g.Projection }
func (l LSI) IndexProjection() Projection { return l.Projection }

// TTLConfig is the expiry policy of a model.
type TTLConfig struct {
	Field string
	// Duration is added to the write time. Zero means the caller supplies
	// the absolute expiry.
	Duration time.Duration
}

// ChangeEvent is the kind of change a CDC consumer subscribes to.
type ChangeEvent string

const (
	EventInsert ChangeEvent = "INSERT"
	EventModify ChangeEvent = "MODIFY"
	EventRemove ChangeEvent = "REMOVE"
	EventUpsert ChangeEvent = "UPSERT"
)

// Expand returns the concrete stream event names the event subscribes to.
func (e ChangeEvent) Expand() []ChangeEvent {
	if e == EventUpsert {
		return []ChangeEvent{EventInsert, EventModify}
	}
	return []ChangeEvent{e}
}

func ParseChangeEvent(s string) (ChangeEvent, error) {
	switch e := ChangeEvent(s); e {
	case EventInsert, EventModify, EventRemove, EventUpsert:
		return e, nil
	}
	return "", fmt.Errorf("unknown change event %q", s)
}

// ChangeDataCaptureConfig is either Trigger or Enricher.
type ChangeDataCaptureConfig interface {
	isChangeDataCapture()
	ChangeEvent() ChangeEvent
	Source() string
}

// Trigger invokes a side-effecting handler for every matching change.
type Trigger struct {
	Event       ChangeEvent
	SourceModel string
	Handler     string
}

// Enricher merges every matching change into a record of another model.
type Enricher struct {
	Event       ChangeEvent
	SourceModel string
	TargetModel string
	TargetTable string
	Handler     string
}

func (Trigger) isChangeDataCapture()  {}
func (Enricher) isChangeDataCapture() {}

func (t Trigger) ChangeEvent() ChangeEvent  { return t.Event }
func (e Enricher) ChangeEvent() ChangeEvent { return e.Event }

func (t Trigger) Source() string  { return t.SourceModel }
func (e Enricher) Source() string { return e.SourceModel }
