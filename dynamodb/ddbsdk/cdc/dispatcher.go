package cdc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/sirupsen/logrus"
)

// Publisher is the subset of the EventBridge client the dispatcher calls.
type Publisher interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

var _ Publisher = (*eventbridge.Client)(nil)

type DispatcherConfig struct {
	// Table is the logical table name the stream belongs to.
	Table string
	// SourcePrefix prefixes the EventBridge source, <prefix>.<table>.
	SourcePrefix string
	// EventBusName is empty for the default bus.
	EventBusName string
	// EntityTypes are the models of the table declaring CDC. Changes of any
	// other model are dropped.
	EntityTypes []string
	Publisher   Publisher
	Logger      logrus.FieldLogger
}

// Dispatcher republishes the stream records of one table to EventBridge.
type Dispatcher struct {
	cfg    DispatcherConfig
	models map[string]bool
	log    logrus.FieldLogger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	models := make(map[string]bool, len(cfg.EntityTypes))
	for _, m := range cfg.EntityTypes {
		models[m] = true
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		cfg:    cfg,
		models: models,
		log:    log.WithField("table", cfg.Table),
	}
}

// Handle publishes one event per matching record, in batch order.
//
// When a record fails to publish, it and every later record of the batch are
// reported as item failures, so the event source retries from the failed
// record and shard order is kept. The returned error is always nil; failures
// travel in the response.
func (d *Dispatcher) Handle(ctx context.Context, ev events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse
	for i, rec := range ev.Records {
		if err := d.dispatch(ctx, rec); err != nil {
			d.log.WithError(err).WithField("sequenceNumber", rec.Change.SequenceNumber).
				Error("publishing change failed; reporting the rest of the batch")
			for _, rest := range ev.Records[i:] {
				resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
					ItemIdentifier: rest.Change.SequenceNumber,
				})
			}
			return resp, nil
		}
	}
	return resp, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, rec events.DynamoDBEventRecord) error {
	entityType := entityTypeOf(rec.Change)
	log := d.log.WithFields(logrus.Fields{
		"entityType":     entityType,
		"kind":           rec.EventName,
		"sequenceNumber": rec.Change.SequenceNumber,
	})
	if !d.models[entityType] {
		log.Debug("skipping change of a model without CDC")
		return nil
	}

	kind := Kind(rec.EventName)
	env := Envelope{
		Meta: EventMeta{
			Type:           DetailType(entityType, kind),
			CausationID:    rec.EventID,
			SequenceNumber: rec.Change.SequenceNumber,
			ChangedAt:      rec.Change.ApproximateCreationDateTime.Time,
		},
		Table:      d.cfg.Table,
		EntityType: entityType,
		Kind:       kind,
		Keys:       rec.Change.Keys,
		NewImage:   rec.Change.NewImage,
		OldImage:   rec.Change.OldImage,
	}
	detail, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode change envelope: %w", err)
	}

	entry := ebtypes.PutEventsRequestEntry{
		Source:     aws.String(Source(d.cfg.SourcePrefix, d.cfg.Table)),
		DetailType: aws.String(env.Meta.Type),
		Detail:     aws.String(string(detail)),
	}
	if d.cfg.EventBusName != "" {
		entry.EventBusName = aws.String(d.cfg.EventBusName)
	}
	out, err := d.cfg.Publisher.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return fmt.Errorf("put events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		msg := "unknown error"
		if len(out.Entries) > 0 {
			msg = fmt.Sprintf("%s: %s", aws.ToString(out.Entries[0].ErrorCode), aws.ToString(out.Entries[0].ErrorMessage))
		}
		return fmt.Errorf("put events: entry rejected: %s", msg)
	}
	log.Info("published change")
	return nil
}

func entityTypeOf(change events.DynamoDBStreamRecord) string {
	for _, image := range []map[string]events.DynamoDBAttributeValue{change.NewImage, change.OldImage} {
		av, ok := image[ddbsdk.AttrEntityType]
		if ok && av.DataType() == events.DataTypeString {
			return av.String()
		}
	}
	return ""
}
