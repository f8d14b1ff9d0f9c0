package ddbstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbstore/expr"
	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// Query retrieves items matching a key condition expression from a table or
// one of its indexes.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.KeyConditionExpression == nil {
		return nil, fmt.Errorf("key condition expression is required")
	}
	if params.ProjectionExpression != nil {
		return nil, fmt.Errorf("ProjectionExpression is not supported")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	idx, err := tabl.getIndex(params.IndexName)
	if err != nil {
		return nil, err
	}
	consistent := params.ConsistentRead != nil && *params.ConsistentRead
	if consistent && idx != nil && !idx.local {
		return nil, fmt.Errorf("consistent reads are not supported on global secondary indexes")
	}

	keys := tabl.definition.KeyDefinitions
	indexName := ""
	if idx != nil {
		keys = idx.keys
		indexName = idx.name
	}

	keyCond, err := expr.ParseKeyCondition(*params.KeyConditionExpression, params.ExpressionAttributeNames,
		params.ExpressionAttributeValues, keys.PartitionKey.Name, keys.SortKey.Name)
	if err != nil {
		return nil, err
	}
	var filter expr.Condition
	if params.FilterExpression != nil {
		filter, err = expr.ParseCondition(*params.FilterExpression)
		if err != nil {
			return nil, fmt.Errorf("invalid FilterExpression: %w", err)
		}
	}

	pv, err := keyValue(keyCond.PartitionValue, keys.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("partition key %s: %w", keys.PartitionKey.Name, err)
	}
	prefix, err := encodePartitionPrefix(tabl.definition.Name, indexName, pv, keys.PartitionKey.Kind)
	if err != nil {
		return nil, err
	}
	startKey, err := tabl.startKey(idx, params.ExclusiveStartKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ExclusiveStartKey: %w", err)
	}

	limit := 0
	if params.Limit != nil {
		limit = int(*params.Limit)
	}
	scanForward := params.ScanIndexForward == nil || *params.ScanIndexForward

	var (
		items   []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
		scanned int
		size    int
	)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = !scanForward
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		switch {
		case startKey != nil:
			it.Seek(startKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), startKey) {
				it.Next()
			}
		case scanForward:
			it.Seek(prefix)
		default:
			// For reverse iteration, seek to end of prefix range
			it.Seek(incrementBytes(prefix))
		}

		for ; it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item map[string]types.AttributeValue
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}

			if keys.SortKey.Name != "" && !keyCond.Sort.Match(item[keys.SortKey.Name]) {
				continue
			}
			scanned++
			size += itemSize(item)

			match := true
			if filter != nil {
				var ferr error
				match, ferr = expr.EvalCondition(filter, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item)
				if ferr != nil {
					return fmt.Errorf("evaluate filter: %w", ferr)
				}
			}
			if match {
				items = append(items, item)
			}

			if limit > 0 && scanned >= limit {
				lastKey = extractKeyAttributes(item, tabl.definition.KeyDefinitions, keys)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(scanned),
		LastEvaluatedKey: lastKey,
		ConsumedCapacity: consumedCapacity(params.ReturnConsumedCapacity, tabl.definition.Name, readUnits(size, consistent)),
	}, nil
}

// startKey encodes an ExclusiveStartKey into the badger key it names.
func (t *tableSchema) startKey(idx *indexSchema, start map[string]types.AttributeValue) ([]byte, error) {
	if start == nil {
		return nil, nil
	}
	base, err := t.definition.ExtractPrimaryKey(start)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return t.encodeKey(base)
	}
	key, err := indexEntryKey(idx, base, start)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("index %s key attributes are missing", idx.name)
	}
	return key, nil
}

func keyValue(av types.AttributeValue, kind table.KeyKind) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		if kind == table.KeyKindS {
			return v.Value, nil
		}
	case *types.AttributeValueMemberN:
		if kind == table.KeyKindN {
			return v.Value, nil
		}
	case *types.AttributeValueMemberB:
		if kind == table.KeyKindB {
			return v.Value, nil
		}
	}
	return nil, fmt.Errorf("value %T does not match key kind %s", av, kind)
}
