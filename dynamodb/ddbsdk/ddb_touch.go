package ddbsdk

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TouchRequest struct {
	Target
	Now time.Time
	// TTL, when positive, moves the expiry to Now+TTL.
	TTL time.Duration
}

// Touch bumps the version, and extends the expiry of fixed-duration TTL
// models, without reading or returning the record.
func Touch(ctx context.Context, db AWSDynamoClientV2, req TouchRequest) (*Output, error) {
	const op = "touch"
	ops := []UpdateOp{AddNumberOp(AttrVersion, 1)}
	if req.TTL > 0 {
		ops = append(ops, SetFieldOp(AttrTTL, req.Now.Add(req.TTL).Unix()))
	}
	expr, err := expression.NewBuilder().
		WithCondition(req.exists()).
		WithUpdate(applyOps(ops)).
		Build()
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, fmt.Errorf("build expression: %w", err))
	}
	out, err := db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                   &req.TableName,
		Key:                         req.Key,
		ConditionExpression:         expr.Condition(),
		UpdateExpression:            expr.Update(),
		ExpressionAttributeNames:    expr.Names(),
		ExpressionAttributeValues:   expr.Values(),
		ReturnValues:                types.ReturnValueNone,
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
	return &Output{Metadata: meta}, nil
}
