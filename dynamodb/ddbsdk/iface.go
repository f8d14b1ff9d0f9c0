package ddbsdk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AWSDynamoClientV2 is the subset of the DynamoDB client the generated data
// layer calls. *dynamodb.Client and *ddbstore.Store both satisfy it.
type AWSDynamoClientV2 interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ AWSDynamoClientV2 = (*dynamodb.Client)(nil)

// Item represents a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// Physical attribute names shared by every generated model.
const (
	AttrPartitionKey = "pk"
	AttrSortKey      = "sk"
	AttrEntityType   = "_et"
	AttrVersion      = "_v"
	AttrCreatedAt    = "_ct"
	AttrUpdatedAt    = "_md"
	AttrTTL          = "_ttl"
)
