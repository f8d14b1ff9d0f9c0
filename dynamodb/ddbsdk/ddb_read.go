package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type ReadRequest struct {
	Target
	ConsistentRead bool
}

// Read looks up one record. A record written by another model under the same
// key is a DataIntegrity fault, not a miss.
func Read(ctx context.Context, db AWSDynamoClientV2, req ReadRequest) (*Output, error) {
	const op = "read"
	out, err := db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:              &req.TableName,
		Key:                    req.Key,
		ConsistentRead:         &req.ConsistentRead,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return nil, classify(op, req.EntityType, err)
	}
	if len(out.Item) == 0 {
		return nil, newError(KindNotFound, op, req.EntityType, nil)
	}
	if err := checkEntityType(op, req.EntityType, out.Item); err != nil {
		return nil, err
	}
	return &Output{
		Item:     out.Item,
		Metadata: ResultMetadata{ConsumedCapacity: out.ConsumedCapacity},
	}, nil
}

// ReadByNodeID resolves an opaque node id to its record.
func ReadByNodeID(ctx context.Context, db AWSDynamoClientV2, tableName, entityType, nodeID string, consistent bool) (*Output, error) {
	id, err := DecodeNodeID(nodeID)
	if err != nil {
		return nil, newError(KindNotFound, "queryByNodeID", entityType, err)
	}
	if id.EntityType != entityType {
		return nil, newError(KindNotFound, "queryByNodeID", entityType,
			fmt.Errorf("node id belongs to %q", id.EntityType))
	}
	return Read(ctx, db, ReadRequest{
		Target:         Target{TableName: tableName, EntityType: entityType, Key: id.Key()},
		ConsistentRead: consistent,
	})
}

func checkEntityType(op, entityType string, item Item) error {
	tag, ok := item[AttrEntityType].(*types.AttributeValueMemberS)
	if !ok || tag.Value != entityType {
		got := "<missing>"
		if ok {
			got = tag.Value
		}
		return newError(KindDataIntegrity, op, entityType,
			fmt.Errorf("stored entity type %q does not match", got))
	}
	return nil
}
