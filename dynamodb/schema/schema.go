// Package schema defines the intermediate representation produced by the SDL
// extractor and the document types written to schema_dynamodb.yaml.
//
// The IR types are built once per generation run and are read-only after
// extraction. The document types are pure data structures with no methods.
package schema

// Document is the root type of a schema_dynamodb.yaml file.
type Document struct {
	Tables []TableDocument `yaml:"tables" json:"tables"`
}

// TableDocument describes a DynamoDB table structure with its entities.
type TableDocument struct {
	Name                string      `yaml:"name" json:"name"`
	PartitionKey        KeyDef      `yaml:"partitionKey" json:"partitionKey"`
	SortKey             *KeyDef     `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	GSIs                []IndexDoc  `yaml:"gsis,omitempty" json:"gsis,omitempty"`
	LSIs                []IndexDoc  `yaml:"lsis,omitempty" json:"lsis,omitempty"`
	TimeToLiveAttribute string      `yaml:"timeToLiveAttribute,omitempty" json:"timeToLiveAttribute,omitempty"`
	Stream              bool        `yaml:"stream,omitempty" json:"stream,omitempty"`
	Entities            []EntityDoc `yaml:"entities,omitempty" json:"entities,omitempty"`
}

// KeyDef describes a key attribute definition.
type KeyDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "S", "N", or "B"
}

// IndexDoc describes a secondary index.
type IndexDoc struct {
	Name         string  `yaml:"name" json:"name"`
	PartitionKey KeyDef  `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	Projection   string  `yaml:"projection" json:"projection"`
}

// EntityDoc describes an entity type stored in a table.
type EntityDoc struct {
	Type                string         `yaml:"type" json:"type"`
	PartitionKeyPattern string         `yaml:"partitionKeyPattern" json:"partitionKeyPattern"`
	SortKeyPattern      string         `yaml:"sortKeyPattern,omitempty" json:"sortKeyPattern,omitempty"`
	Fields              []FieldDoc     `yaml:"fields" json:"fields"`
	IndexMappings       []IndexMapping `yaml:"indexMappings,omitempty" json:"indexMappings,omitempty"`
	TTL                 string         `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	ConsistentRead      bool           `yaml:"consistentRead,omitempty" json:"consistentRead,omitempty"`
	CDC                 *CDCDoc        `yaml:"cdc,omitempty" json:"cdc,omitempty"`
}

// FieldDoc describes an entity field.
type FieldDoc struct {
	Name     string `yaml:"name" json:"name"`
	Column   string `yaml:"column" json:"column"`
	Type     string `yaml:"type" json:"type"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Computed string `yaml:"computed,omitempty" json:"computed,omitempty"`
}

// IndexMapping describes how an entity maps to a secondary index.
type IndexMapping struct {
	Index            string `yaml:"index" json:"index"`
	PartitionPattern string `yaml:"partitionPattern,omitempty" json:"partitionPattern,omitempty"`
	SortPattern      string `yaml:"sortPattern,omitempty" json:"sortPattern,omitempty"`
}

// CDCDoc describes the change data capture unit declared on an entity.
type CDCDoc struct {
	Kind     string   `yaml:"kind" json:"kind"`
	Event    string   `yaml:"event" json:"event"`
	Target   string   `yaml:"target,omitempty" json:"target,omitempty"`
	Handler  string   `yaml:"handler,omitempty" json:"handler,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}
