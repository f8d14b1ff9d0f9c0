package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DeleteRequest struct {
	Target
}

// Delete removes a record of the target's entity type and returns it.
func Delete(ctx context.Context, db AWSDynamoClientV2, req DeleteRequest) (*Output, error) {
	const op = "delete"
	expr, err := expression.NewBuilder().WithCondition(req.exists()).Build()
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, fmt.Errorf("build expression: %w", err))
	}
	out, err := db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                   &req.TableName,
		Key:                         req.Key,
		ConditionExpression:         expr.Condition(),
		ExpressionAttributeNames:    expr.Names(),
		ExpressionAttributeValues:   expr.Values(),
		ReturnValues:                types.ReturnValueAllOld,
		ReturnConsumedCapacity:      types.ReturnConsumedCapacityTotal,
		ReturnItemCollectionMetrics: types.ReturnItemCollectionMetricsSize,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, newError(KindNotFound, op, req.EntityType, err)
		}
		return nil, classify(op, req.EntityType, err)
	}
	meta, err := requireMetadata(op, req.EntityType, out.ConsumedCapacity, out.ItemCollectionMetrics)
	if err != nil {
		return nil, err
	}
	return &Output{Item: out.Attributes, Metadata: meta}, nil
}
