package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type UpdateRequest struct {
	Target
	Write
	// Version, when set, makes the update optimistic: it only applies if the
	// stored version still equals it.
	Version        *int
	ConsistentRead bool
}

// Update overwrites the columns of an existing record, removes the Remove
// columns and bumps its version.
//
// When the write condition fails a read classifies the failure. The read is
// advisory: it never decides whether to write.
func Update(ctx context.Context, db AWSDynamoClientV2, req UpdateRequest) (*Output, error) {
	const op = "update"
	ops := req.writeOps()
	ops = append(ops,
		SetFieldOp(AttrUpdatedAt, epochMillis(req.Now)),
		AddNumberOp(AttrVersion, 1),
	)
	if exp := req.expiry(); exp != nil {
		ops = append(ops, SetFieldOp(AttrTTL, exp.Unix()))
	}

	cond := req.exists()
	if req.Version != nil {
		cond = cond.And(expression.Name(AttrVersion).Equal(expression.Value(*req.Version)))
	}

	expr, err := expression.NewBuilder().
		WithCondition(cond).
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
			return nil, disambiguate(ctx, db, req, err)
		}
		return nil, classify(op, req.EntityType, err)
	}
	meta, err := requireMetadata(op, req.EntityType, out.ConsumedCapacity, out.ItemCollectionMetrics)
	if err != nil {
		return nil, err
	}
	return &Output{Item: out.Attributes, Metadata: meta}, nil
}

func disambiguate(ctx context.Context, db AWSDynamoClientV2, req UpdateRequest, cause error) error {
	const op = "update"
	_, err := Read(ctx, db, ReadRequest{Target: req.Target, ConsistentRead: true})
	switch {
	case err == nil:
		return newError(KindOptimisticLockConflict, op, req.EntityType, cause)
	case IsKind(err, KindDataIntegrity):
		return newError(KindDataIntegrity, op, req.EntityType, err)
	default:
		return newError(KindNotFound, op, req.EntityType, cause)
	}
}
