package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PrimaryKeyDefinition names the key attributes of a table or index. A
// definition without a sort key name describes a simple key.
type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

// KeyKind is the scalar type of a key attribute. Generated key attributes
// are always S.
type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// PrimaryKeyValues holds the raw key values: the string form of S and N
// attributes and the bytes of B attributes.
type PrimaryKeyValues struct {
	PartitionKey any
	SortKey      any
}

// PrimaryKey is the key of one item under a definition, as extracted from
// the item.
type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

// Item returns the key as an attribute map.
func (k PrimaryKey) Item() map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		k.Definition.PartitionKey.Name: k.Definition.PartitionKey.Kind.value(k.Values.PartitionKey),
	}
	if k.Definition.SortKey.Name != "" {
		item[k.Definition.SortKey.Name] = k.Definition.SortKey.Kind.value(k.Values.SortKey)
	}
	return item
}

// ExtractPrimaryKey reads the key attributes of the definition from doc.
func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, err := k.PartitionKey.extract(doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("partition key: %w", err)
	}
	pk := PrimaryKey{Definition: k, Values: PrimaryKeyValues{PartitionKey: part}}
	if k.SortKey.Name == "" {
		return pk, nil
	}
	pk.Values.SortKey, err = k.SortKey.extract(doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key: %w", err)
	}
	return pk, nil
}

// HasKey reports whether doc carries every key attribute of the definition.
// Items missing an index key are not written to that index.
func (k PrimaryKeyDefinition) HasKey(doc map[string]types.AttributeValue) bool {
	for _, attr := range k.Attributes() {
		if _, ok := doc[attr]; !ok {
			return false
		}
	}
	return true
}

// Attributes returns the key attribute names, partition first.
func (k PrimaryKeyDefinition) Attributes() []string {
	if k.SortKey.Name == "" {
		return []string{k.PartitionKey.Name}
	}
	return []string{k.PartitionKey.Name, k.SortKey.Name}
}

func (d KeyDef) extract(doc map[string]types.AttributeValue) (any, error) {
	av, ok := doc[d.Name]
	if !ok {
		return nil, fmt.Errorf("%q not found", d.Name)
	}
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, d.expect(KeyKindS)
	case *types.AttributeValueMemberN:
		return v.Value, d.expect(KeyKindN)
	case *types.AttributeValueMemberB:
		return v.Value, d.expect(KeyKindB)
	}
	return nil, fmt.Errorf("%q: %T cannot be a key attribute", d.Name, av)
}

func (d KeyDef) expect(got KeyKind) error {
	if got != d.Kind {
		return fmt.Errorf("%q is %s, the definition wants %s", d.Name, got, d.Kind)
	}
	return nil
}

func (kind KeyKind) value(v any) types.AttributeValue {
	switch kind {
	case KeyKindN:
		return &types.AttributeValueMemberN{Value: v.(string)}
	case KeyKindB:
		return &types.AttributeValueMemberB{Value: v.([]byte)}
	}
	return &types.AttributeValueMemberS{Value: v.(string)}
}
