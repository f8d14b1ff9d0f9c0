package table

import (
	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	TimeToLiveKey  string
	GSIs           []GSIDefinition
	LSIs           []LSIDefinition
	StreamEnabled  bool
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name             string
	KeyDefinitions   PrimaryKeyDefinition
	Projection       ProjectionKind
	NonKeyAttributes []string
}

// LSIDefinition represents a Local Secondary Index definition. Its partition
// key is always the table's partition key.
type LSIDefinition struct {
	Name             string
	KeyDefinitions   PrimaryKeyDefinition
	Projection       ProjectionKind
	NonKeyAttributes []string
}

// ExtractPrimaryKey extracts the primary key values from a document.
func (g GSIDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return g.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (l LSIDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return l.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (t TableDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

// FromSchema builds the physical definition of a table declared in the
// schema. Every key attribute generated from a key template is a string.
func FromSchema(t schema.Table) TableDefinition {
	def := TableDefinition{
		Name: t.Name,
		KeyDefinitions: PrimaryKeyDefinition{
			PartitionKey: KeyDef{Name: schema.AttrPartitionKey, Kind: KeyKindS},
		},
		StreamEnabled: t.Stream,
	}
	if t.HasSortKey() {
		def.KeyDefinitions.SortKey = KeyDef{Name: schema.AttrSortKey, Kind: KeyKindS}
	}
	if t.TTL {
		def.TimeToLiveKey = schema.AttrTTL
	}
	for _, g := range t.GSIs {
		keys := PrimaryKeyDefinition{PartitionKey: KeyDef{Name: g.PartitionAttr, Kind: KeyKindS}}
		if g.SortAttr != "" {
			keys.SortKey = KeyDef{Name: g.SortAttr, Kind: KeyKindS}
		}
		kind, nonKey := projection(g.Projection)
		def.GSIs = append(def.GSIs, GSIDefinition{
			Name:             g.Name,
			KeyDefinitions:   keys,
			Projection:       kind,
			NonKeyAttributes: nonKey,
		})
	}
	for _, l := range t.LSIs {
		kind, nonKey := projection(l.Projection)
		def.LSIs = append(def.LSIs, LSIDefinition{
			Name: l.Name,
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: def.KeyDefinitions.PartitionKey,
				SortKey:      KeyDef{Name: l.SortAttr, Kind: KeyKindS},
			},
			Projection:       kind,
			NonKeyAttributes: nonKey,
		})
	}
	return def
}

// projection maps a schema projection onto the physical one. A KEYS_ONLY
// index also carries the entity type tag, so a query over an index shared by
// several models can tell their keys apart.
func projection(p schema.Projection) (ProjectionKind, []string) {
	if p == schema.ProjectionKeysOnly {
		return ProjectInclude, []string{schema.AttrEntityType}
	}
	return ProjectAll, nil
}
