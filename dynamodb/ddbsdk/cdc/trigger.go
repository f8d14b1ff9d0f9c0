package cdc

import (
	"context"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Change is one decoded change of a record. Old is nil for an insert and
// for records written before the stream was enabled.
type Change[T any] struct {
	Meta EventMeta
	Kind Kind
	// Record is the new state, or the last state for a removal.
	Record *T
	Old    *T
}

// Trigger hands every routed change of a model to a user handler.
type Trigger[T any] struct {
	EntityType string
	Unmarshall func(ddbsdk.Item) (*T, error)
	Handler    func(ctx context.Context, change Change[T]) error
	Logger     logrus.FieldLogger
}

// Handle decodes the change and calls the handler. A handler error is
// returned unchanged, so the rule's retry policy and dead-letter queue apply.
func (t *Trigger[T]) Handle(ctx context.Context, ev events.EventBridgeEvent) error {
	env, err := decodeFor(ev, t.EntityType)
	if err != nil {
		return err
	}
	change, err := decodeChange(env, t.Unmarshall)
	if err != nil {
		return err
	}
	log := loggerFor(t.Logger, env)
	if err := t.Handler(ctx, change); err != nil {
		log.WithError(err).Error("trigger handler failed")
		return err
	}
	log.Info("trigger handled change")
	return nil
}

// decodeFor peeks at the envelope before decoding it, rejecting events a
// rule routed to the wrong function.
func decodeFor(ev events.EventBridgeEvent, entityType string) (Envelope, error) {
	got := gjson.GetBytes(ev.Detail, "entityType")
	if !got.Exists() {
		return Envelope{}, fmt.Errorf("event %s carries no change envelope", ev.ID)
	}
	if got.String() != entityType {
		return Envelope{}, fmt.Errorf("event %s is a change of %q, want %q", ev.ID, got.String(), entityType)
	}
	return decodeEnvelope(ev.Detail)
}

func decodeChange[T any](env Envelope, unmarshall func(ddbsdk.Item) (*T, error)) (Change[T], error) {
	change := Change[T]{Meta: env.Meta, Kind: env.Kind}
	item, err := env.Image()
	if err != nil {
		return change, err
	}
	if change.Record, err = unmarshall(item); err != nil {
		return change, fmt.Errorf("unmarshall %s image: %w", env.EntityType, err)
	}
	if env.Kind == KindModify {
		old, err := env.Previous()
		if err != nil {
			return change, err
		}
		if old != nil {
			if change.Old, err = unmarshall(old); err != nil {
				return change, fmt.Errorf("unmarshall %s old image: %w", env.EntityType, err)
			}
		}
	}
	return change, nil
}

func loggerFor(l logrus.FieldLogger, env Envelope) logrus.FieldLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithFields(logrus.Fields{
		"table":          env.Table,
		"entityType":     env.EntityType,
		"kind":           env.Kind,
		"sequenceNumber": env.Meta.SequenceNumber,
	})
}
