package ddbstore

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// stream records item level changes of stream enabled tables in the shape a
// Lambda event source mapping delivers them, with NEW_AND_OLD_IMAGES.
type stream struct {
	mu      sync.Mutex
	seq     int64
	records []events.DynamoDBEventRecord
}

// StreamARN is the event source ARN recorded on stream records of a table.
func StreamARN(tableName string) string {
	return fmt.Sprintf("arn:aws:dynamodb:local:000000000000:table/%s/stream/local", tableName)
}

func (s *stream) record(def table.TableDefinition, keys, old, item map[string]types.AttributeValue) {
	var name events.DynamoDBOperationType
	switch {
	case old == nil && item == nil:
		return
	case old == nil:
		name = events.DynamoDBOperationTypeInsert
	case item == nil:
		name = events.DynamoDBOperationTypeRemove
	default:
		// Writes that leave the item unchanged produce no record.
		if reflect.DeepEqual(old, item) {
			return
		}
		name = events.DynamoDBOperationTypeModify
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	seq := fmt.Sprintf("%021d", s.seq)
	s.records = append(s.records, events.DynamoDBEventRecord{
		AWSRegion:      "local",
		EventID:        seq,
		EventName:      string(name),
		EventSource:    "aws:dynamodb",
		EventVersion:   "1.1",
		EventSourceArn: StreamARN(def.Name),
		Change: events.DynamoDBStreamRecord{
			ApproximateCreationDateTime: events.SecondsEpochTime{Time: time.Now().Truncate(time.Second)},
			Keys:                        toStreamImage(keys),
			NewImage:                    toStreamImage(item),
			OldImage:                    toStreamImage(old),
			SequenceNumber:              seq,
			SizeBytes:                   int64(itemSize(old) + itemSize(item)),
			StreamViewType:              string(events.DynamoDBStreamViewTypeNewAndOldImages),
		},
	})
}

func (s *stream) drain() []events.DynamoDBEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.records
	s.records = nil
	return out
}

// DrainStream returns the stream records committed since the last drain,
// oldest first.
func (s *Store) DrainStream() []events.DynamoDBEventRecord {
	return s.stream.drain()
}

// StreamEvent drains the stream into one Lambda invocation payload.
func (s *Store) StreamEvent() events.DynamoDBEvent {
	return events.DynamoDBEvent{Records: s.DrainStream()}
}

func toStreamImage(item map[string]types.AttributeValue) map[string]events.DynamoDBAttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]events.DynamoDBAttributeValue, len(item))
	for k, v := range item {
		out[k] = toStreamValue(v)
	}
	return out
}

func toStreamValue(av types.AttributeValue) events.DynamoDBAttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return events.NewStringAttribute(v.Value)
	case *types.AttributeValueMemberN:
		return events.NewNumberAttribute(v.Value)
	case *types.AttributeValueMemberB:
		return events.NewBinaryAttribute(v.Value)
	case *types.AttributeValueMemberBOOL:
		return events.NewBooleanAttribute(v.Value)
	case *types.AttributeValueMemberSS:
		return events.NewStringSetAttribute(v.Value)
	case *types.AttributeValueMemberNS:
		return events.NewNumberSetAttribute(v.Value)
	case *types.AttributeValueMemberBS:
		return events.NewBinarySetAttribute(v.Value)
	case *types.AttributeValueMemberL:
		list := make([]events.DynamoDBAttributeValue, len(v.Value))
		for i, e := range v.Value {
			list[i] = toStreamValue(e)
		}
		return events.NewListAttribute(list)
	case *types.AttributeValueMemberM:
		return events.NewMapAttribute(toStreamImage(v.Value))
	}
	return events.NewNullAttribute()
}
