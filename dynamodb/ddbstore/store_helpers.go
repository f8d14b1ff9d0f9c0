package ddbstore

import (
	"math"

	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

func ptrStr(s string) *string {
	return &s
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{
		Message: ptrStr("The conditional request failed"),
	}
}

func extractKeyAttributes(item map[string]types.AttributeValue, keyDefs ...table.PrimaryKeyDefinition) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for _, keyDef := range keyDefs {
		for _, attr := range keyDef.Attributes() {
			if v, ok := item[attr]; ok {
				result[attr] = v
			}
		}
	}
	return result
}

func incrementBytes(b []byte) []byte {
	result := make([]byte, len(b))
	copy(result, b)
	for i := len(result) - 1; i >= 0; i-- {
		if result[i] < 0xFF {
			result[i]++
			return result
		}
		result[i] = 0
	}
	// Overflow - append 0x00
	return append(result, 0x00)
}

// getItem reads and decodes the item stored under key. A missing key yields
// a nil item.
func getItem(txn *badger.Txn, key []byte) (map[string]types.AttributeValue, error) {
	stored, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item map[string]types.AttributeValue
	err = stored.Value(func(val []byte) error {
		item, err = DeserializeItem(val)
		return err
	})
	return item, err
}

// itemSize approximates the DynamoDB item size: attribute name lengths plus
// value sizes.
func itemSize(item map[string]types.AttributeValue) int {
	n := 0
	for name, v := range item {
		n += len(name) + valueSize(v)
	}
	return n
}

func valueSize(av types.AttributeValue) int {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value)
	case *types.AttributeValueMemberN:
		return (len(v.Value)+1)/2 + 1
	case *types.AttributeValueMemberB:
		return len(v.Value)
	case *types.AttributeValueMemberBOOL, *types.AttributeValueMemberNULL:
		return 1
	case *types.AttributeValueMemberSS:
		n := 0
		for _, s := range v.Value {
			n += len(s)
		}
		return n
	case *types.AttributeValueMemberNS:
		n := 0
		for _, s := range v.Value {
			n += (len(s)+1)/2 + 1
		}
		return n
	case *types.AttributeValueMemberBS:
		n := 0
		for _, b := range v.Value {
			n += len(b)
		}
		return n
	case *types.AttributeValueMemberL:
		n := 3
		for _, e := range v.Value {
			n += 1 + valueSize(e)
		}
		return n
	case *types.AttributeValueMemberM:
		return 3 + itemSize(v.Value)
	}
	return 0
}

// writeUnits is one unit per started KB of the larger image, plus one unit
// per index entry written or removed.
func writeUnits(size, indexWrites int) float64 {
	units := math.Ceil(float64(size) / 1024)
	return math.Max(units, 1) + float64(indexWrites)
}

// readUnits is one unit per started 4 KB, halved for eventually consistent
// reads.
func readUnits(size int, consistent bool) float64 {
	units := math.Max(math.Ceil(float64(size)/4096), 1)
	if !consistent {
		units /= 2
	}
	return units
}

func consumedCapacity(mode types.ReturnConsumedCapacity, tableName string, units float64) *types.ConsumedCapacity {
	if mode == "" || mode == types.ReturnConsumedCapacityNone {
		return nil
	}
	return &types.ConsumedCapacity{
		TableName:     ptrStr(tableName),
		CapacityUnits: &units,
	}
}

// itemCollectionMetrics are only reported for tables with local secondary
// indexes, as DynamoDB does.
func (t *tableSchema) itemCollectionMetrics(mode types.ReturnItemCollectionMetrics, key map[string]types.AttributeValue) *types.ItemCollectionMetrics {
	if mode != types.ReturnItemCollectionMetricsSize || len(t.definition.LSIs) == 0 {
		return nil
	}
	partition := t.definition.KeyDefinitions.PartitionKey.Name
	return &types.ItemCollectionMetrics{
		ItemCollectionKey:   map[string]types.AttributeValue{partition: key[partition]},
		SizeEstimateRangeGB: []float64{0, 1},
	}
}
