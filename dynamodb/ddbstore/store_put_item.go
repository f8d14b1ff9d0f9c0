package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbstore/expr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PutItem creates or replaces an item.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Item == nil {
		return nil, fmt.Errorf("item is required")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	pk, err := tabl.definition.ExtractPrimaryKey(params.Item)
	if err != nil {
		return nil, fmt.Errorf("extract primary key: %w", err)
	}

	cond, err := parseCondition(params.ConditionExpression)
	if err != nil {
		return nil, err
	}

	item := copyItem(params.Item)
	res, err := s.write(tabl, pk, func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
		if err := checkCondition(cond, params.ExpressionAttributeNames, params.ExpressionAttributeValues, old); err != nil {
			return nil, err
		}
		return item, nil
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.PutItemOutput{
		ConsumedCapacity:      consumedCapacity(params.ReturnConsumedCapacity, tabl.definition.Name, res.units()),
		ItemCollectionMetrics: tabl.itemCollectionMetrics(params.ReturnItemCollectionMetrics, params.Item),
	}
	if params.ReturnValues == types.ReturnValueAllOld && res.old != nil {
		out.Attributes = res.old
	}
	return out, nil
}

func parseCondition(expression *string) (expr.Condition, error) {
	if expression == nil {
		return nil, nil
	}
	cond, err := expr.ParseCondition(*expression)
	if err != nil {
		return nil, fmt.Errorf("invalid ConditionExpression: %w", err)
	}
	return cond, nil
}

// checkCondition evaluates an optional condition against the stored item and
// fails the write with ConditionalCheckFailedException when it is false.
func checkCondition(cond expr.Condition, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	if cond == nil {
		return nil
	}
	ok, err := expr.EvalCondition(cond, names, values, item)
	if err != nil {
		return fmt.Errorf("evaluate condition: %w", err)
	}
	if !ok {
		return conditionFailed()
	}
	return nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
