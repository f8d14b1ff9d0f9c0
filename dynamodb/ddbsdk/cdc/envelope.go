// Package cdc is the runtime of generated change-data-capture functions.
//
// A Dispatcher consumes the DynamoDB stream of one table and republishes
// every change of a CDC enabled model to EventBridge. Rules on the bus route
// the events to a Trigger, which hands the change to a user handler, or to an
// Enricher, which merges the change into a record of another model.
//
// Delivery is at least once and unordered across shards, so handlers and
// mappers must tolerate replays.
package cdc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Kind is the stream event name of a change.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindModify Kind = "MODIFY"
	KindRemove Kind = "REMOVE"
)

// EventMeta traces a published event back to the stream record causing it.
type EventMeta struct {
	// Type is the detail type of the event, <EntityType>.<Kind>.
	Type string `json:"type"`
	// CausationID is the id of the stream record the event was built from.
	CausationID string `json:"causationId"`
	// SequenceNumber orders the record within its shard.
	SequenceNumber string `json:"sequenceNumber"`
	// ChangedAt is the approximate time the change was written.
	ChangedAt time.Time `json:"changedAt"`
}

// Envelope is the EventBridge detail of one change. Images keep the
// DynamoDB JSON encoding of the stream, so they decode back to the exact
// attribute values the generated unmarshaller expects.
type Envelope struct {
	Meta       EventMeta                                `json:"meta"`
	Table      string                                   `json:"table"`
	EntityType string                                   `json:"entityType"`
	Kind       Kind                                     `json:"kind"`
	Keys       map[string]events.DynamoDBAttributeValue `json:"keys"`
	NewImage   map[string]events.DynamoDBAttributeValue `json:"newImage,omitempty"`
	OldImage   map[string]events.DynamoDBAttributeValue `json:"oldImage,omitempty"`
}

// DetailType is the EventBridge detail type of a change.
func DetailType(entityType string, kind Kind) string {
	return entityType + "." + string(kind)
}

// Source is the EventBridge source of changes published from a table.
func Source(prefix, table string) string {
	return prefix + "." + table
}

// Image returns the record state a consumer acts on: the new image, or the
// old one for a removal.
func (e Envelope) Image() (ddbsdk.Item, error) {
	if e.Kind == KindRemove {
		return FromStreamImage(e.OldImage)
	}
	return FromStreamImage(e.NewImage)
}

// Previous returns the old image, or nil when the change has none.
func (e Envelope) Previous() (ddbsdk.Item, error) {
	if len(e.OldImage) == 0 {
		return nil, nil
	}
	return FromStreamImage(e.OldImage)
}

func decodeEnvelope(detail json.RawMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(detail, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode change envelope: %w", err)
	}
	return env, nil
}

// FromStreamImage converts a stream image into the attribute values the SDK
// client uses.
func FromStreamImage(image map[string]events.DynamoDBAttributeValue) (ddbsdk.Item, error) {
	if image == nil {
		return nil, nil
	}
	item := make(ddbsdk.Item, len(image))
	for name, av := range image {
		v, err := fromStreamValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = v
	}
	return item, nil
}

func fromStreamValue(av events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch av.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: av.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: av.Number()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: av.Binary()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: av.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: av.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: av.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: av.BinarySet()}, nil
	case events.DataTypeList:
		list := av.List()
		out := make([]types.AttributeValue, len(list))
		for i, e := range list {
			v, err := fromStreamValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := FromStreamImage(av.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported stream data type %d", av.DataType())
}
