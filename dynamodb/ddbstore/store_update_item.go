package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbstore/expr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateItem updates an existing item or creates a new one.
func (s *Store) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Key == nil {
		return nil, fmt.Errorf("key is required")
	}
	if params.UpdateExpression == nil {
		return nil, fmt.Errorf("UpdateExpression is required")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	pk, err := tabl.definition.ExtractPrimaryKey(params.Key)
	if err != nil {
		return nil, fmt.Errorf("extract primary key: %w", err)
	}

	update, err := expr.ParseUpdate(*params.UpdateExpression)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdateExpression: %w", err)
	}
	cond, err := parseCondition(params.ConditionExpression)
	if err != nil {
		return nil, err
	}

	var updated []string
	res, err := s.write(tabl, pk, func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
		if err := checkCondition(cond, params.ExpressionAttributeNames, params.ExpressionAttributeValues, old); err != nil {
			return nil, err
		}

		base := copyItem(old)
		for k, v := range params.Key {
			base[k] = v
		}
		applied, err := update.Apply(params.ExpressionAttributeNames, params.ExpressionAttributeValues, base)
		if err != nil {
			return nil, fmt.Errorf("apply update expression: %w", err)
		}
		for _, attr := range applied.Updated {
			if _, isKey := params.Key[attr]; isKey {
				return nil, fmt.Errorf("cannot update attribute %s: this attribute is part of the key", attr)
			}
		}
		updated = applied.Updated
		return applied.Item, nil
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.UpdateItemOutput{
		Attributes:            returnAttributes(params.ReturnValues, res.old, res.new, updated),
		ConsumedCapacity:      consumedCapacity(params.ReturnConsumedCapacity, tabl.definition.Name, res.units()),
		ItemCollectionMetrics: tabl.itemCollectionMetrics(params.ReturnItemCollectionMetrics, params.Key),
	}, nil
}

func returnAttributes(mode types.ReturnValue, old, item map[string]types.AttributeValue, updated []string) map[string]types.AttributeValue {
	switch mode {
	case types.ReturnValueAllOld:
		return old
	case types.ReturnValueAllNew:
		return item
	case types.ReturnValueUpdatedOld:
		return pick(old, updated)
	case types.ReturnValueUpdatedNew:
		return pick(item, updated)
	}
	return nil
}

func pick(item map[string]types.AttributeValue, attrs []string) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue)
	for _, a := range attrs {
		if v, ok := item[a]; ok {
			out[a] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
