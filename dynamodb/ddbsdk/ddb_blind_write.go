package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type BlindWriteRequest struct {
	Target
	Write
}

// BlindWrite upserts a record without any existence condition. The version
// is bumped with ADD so concurrent blind writes never lose an increment, and
// createdAt keeps the first write's value.
//
// A stored record tagged with another entity type is left alone and reported
// as a data integrity fault.
func BlindWrite(ctx context.Context, db AWSDynamoClientV2, req BlindWriteRequest) (*Output, error) {
	const op = "blindWrite"
	ops := req.writeOps()
	ops = append(ops,
		SetFieldOp(AttrEntityType, req.EntityType),
		SetFieldOp(AttrUpdatedAt, epochMillis(req.Now)),
		SetIfNotExistsOp(AttrCreatedAt, epochMillis(req.Now)),
		AddNumberOp(AttrVersion, 1),
	)
	if exp := req.expiry(); exp != nil {
		ops = append(ops, SetFieldOp(AttrTTL, exp.Unix()))
	}

	expr, err := expression.NewBuilder().
		WithCondition(req.ownedOrNew()).
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
		ReturnValues:                types.ReturnValueAllNew,
		ReturnConsumedCapacity:      types.ReturnConsumedCapacityTotal,
		ReturnItemCollectionMetrics: types.ReturnItemCollectionMetricsSize,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, newError(KindDataIntegrity, op, req.EntityType, fmt.Errorf("record holds another entity type: %w", err))
		}
		return nil, classify(op, req.EntityType, err)
	}
	meta, err := requireMetadata(op, req.EntityType, out.ConsumedCapacity, out.ItemCollectionMetrics)
	if err != nil {
		return nil, err
	}
	return &Output{Item: out.Attributes, Metadata: meta}, nil
}
