package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// GetItem retrieves a single item by its primary key. A missing item yields
// an output without Item, as DynamoDB does.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Key == nil {
		return nil, fmt.Errorf("key is required")
	}
	if params.ProjectionExpression != nil {
		return nil, fmt.Errorf("ProjectionExpression is not supported")
	}

	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	pk, err := t.definition.ExtractPrimaryKey(params.Key)
	if err != nil {
		return nil, fmt.Errorf("extract primary key: %w", err)
	}

	key, err := t.encodeKey(pk)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}

	var item map[string]types.AttributeValue
	err = s.db.View(func(txn *badger.Txn) error {
		item, err = getItem(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	consistent := params.ConsistentRead != nil && *params.ConsistentRead
	return &dynamodb.GetItemOutput{
		Item:             item,
		ConsumedCapacity: consumedCapacity(params.ReturnConsumedCapacity, t.definition.Name, readUnits(itemSize(item), consistent)),
	}, nil
}
