package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type QueryRequest struct {
	TableName string
	// IndexName is empty for the primary key's sort key namespace.
	IndexName      string
	EntityType     string
	PartitionAttr  string
	PartitionValue string
	SortAttr       string
	Sort           *SortKeyCondition
	Descending     bool
	// Limit caps the page size. Zero leaves it to the backend.
	Limit          int32
	NextToken      string
	ConsistentRead bool
}

type QueryOutput struct {
	Items     []Item
	NextToken string
	Metadata  ResultMetadata
}

// QueryOptions are the caller facing knobs of a generated query.
type QueryOptions struct {
	Descending bool
	Limit      int32
	NextToken  string
}

type querier struct {
	awsddb AWSDynamoClientV2
	req    QueryRequest
}

// Query reads one page of records sharing a partition key value. Every
// returned record is entity type checked.
func Query(ctx context.Context, db AWSDynamoClientV2, req QueryRequest) (*QueryOutput, error) {
	q := &querier{awsddb: db, req: req}
	return q.Next(ctx)
}

func (q *querier) Next(ctx context.Context) (*QueryOutput, error) {
	const op = "query"
	req := q.req
	key := expression.KeyEqual(expression.Key(req.PartitionAttr), expression.Value(req.PartitionValue))
	if req.Sort != nil {
		key = key.And(req.Sort.build(req.SortAttr))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, fmt.Errorf("build query expression: %w", err))
	}
	start, err := decodeCursor(req.NextToken)
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, err)
	}

	in := &dynamodb.QueryInput{
		TableName:                 &req.TableName,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          ptr(!req.Descending),
		ExclusiveStartKey:         start,
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	}
	if req.IndexName != "" {
		in.IndexName = &req.IndexName
	}
	if req.Limit > 0 {
		in.Limit = &req.Limit
	}
	// Strong reads are not available on GSIs; the generator only sets
	// ConsistentRead for the table and its LSIs.
	if req.ConsistentRead {
		in.ConsistentRead = ptr(true)
	}

	res, err := q.awsddb.Query(ctx, in)
	if err != nil {
		return nil, classify(op, req.EntityType, err)
	}
	for _, item := range res.Items {
		if err := checkEntityType(op, req.EntityType, item); err != nil {
			return nil, err
		}
	}
	next, err := encodeCursor(res.LastEvaluatedKey)
	if err != nil {
		return nil, newError(KindUnexpectedFault, op, req.EntityType, err)
	}
	return &QueryOutput{
		Items:     res.Items,
		NextToken: next,
		Metadata:  ResultMetadata{ConsumedCapacity: res.ConsumedCapacity},
	}, nil
}

func ptr[T any](v T) *T {
	return &v
}
