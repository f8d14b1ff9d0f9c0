package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DeleteItem removes an item by its primary key. The condition is evaluated
// even when no item is stored, against an empty item.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Key == nil {
		return nil, fmt.Errorf("key is required")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	pk, err := tabl.definition.ExtractPrimaryKey(params.Key)
	if err != nil {
		return nil, fmt.Errorf("extract primary key: %w", err)
	}

	cond, err := parseCondition(params.ConditionExpression)
	if err != nil {
		return nil, err
	}

	res, err := s.write(tabl, pk, func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
		if err := checkCondition(cond, params.ExpressionAttributeNames, params.ExpressionAttributeValues, old); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.DeleteItemOutput{
		ConsumedCapacity:      consumedCapacity(params.ReturnConsumedCapacity, tabl.definition.Name, res.units()),
		ItemCollectionMetrics: tabl.itemCollectionMetrics(params.ReturnItemCollectionMetrics, params.Key),
	}
	if params.ReturnValues == types.ReturnValueAllOld && res.old != nil {
		out.Attributes = res.old
	}
	return out, nil
}
