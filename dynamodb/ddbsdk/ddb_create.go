package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type CreateRequest struct {
	Target
	Write
}

// Create writes a new record at version 1. It fails with AlreadyExists when
// any record exists at the key.
func Create(ctx context.Context, db AWSDynamoClientV2, req CreateRequest) (*Output, error) {
	const op = "create"
	item, err := req.item()
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(AttrPartitionKey))).
		Build()
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, fmt.Errorf("build expression: %w", err))
	}
	out, err := db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                   &req.TableName,
		Item:                        item,
		ConditionExpression:         expr.Condition(),
		ExpressionAttributeNames:    expr.Names(),
		ExpressionAttributeValues:   expr.Values(),
		ReturnConsumedCapacity:      types.ReturnConsumedCapacityTotal,
		ReturnItemCollectionMetrics: types.ReturnItemCollectionMetricsSize,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, newError(KindAlreadyExists, op, req.EntityType, err)
		}
		return nil, classify(op, req.EntityType, err)
	}
	meta, err := requireMetadata(op, req.EntityType, out.ConsumedCapacity, out.ItemCollectionMetrics)
	if err != nil {
		return nil, err
	}
	return &Output{Item: item, Metadata: meta}, nil
}

// item assembles the full record: user columns, keys and managed columns.
func (req CreateRequest) item() (Item, error) {
	values := make(map[string]any, len(req.Attributes)+6)
	for k, v := range req.Attributes {
		values[k] = v
	}
	values[AttrEntityType] = req.EntityType
	values[AttrVersion] = 1
	values[AttrCreatedAt] = epochMillis(req.Now)
	values[AttrUpdatedAt] = epochMillis(req.Now)
	if exp := req.expiry(); exp != nil {
		values[AttrTTL] = exp.Unix()
	}
	item, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	for k, v := range req.Key {
		item[k] = v
	}
	return item, nil
}
