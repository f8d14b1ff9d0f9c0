package cdc_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/acksell/ddbsdl/dynamodb/ddbsdk/cdc"
	"github.com/acksell/ddbsdl/dynamodb/ddbstore"
	"github.com/acksell/ddbsdl/dynamodb/logging"
	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type publisher struct {
	entries []ebtypes.PutEventsRequestEntry
	calls   int
	failAt  int
	reject  bool
}

func (p *publisher) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	p.calls++
	if p.calls == p.failAt {
		return nil, errors.New("throttled")
	}
	if p.reject {
		return &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries: []ebtypes.PutEventsResultEntry{{
				ErrorCode:    aws.String("InternalFailure"),
				ErrorMessage: aws.String("try again"),
			}},
		}, nil
	}
	p.entries = append(p.entries, in.Entries...)
	return &eventbridge.PutEventsOutput{}, nil
}

// bridge turns a published entry into the event a rule target receives.
func bridge(t *testing.T, entry ebtypes.PutEventsRequestEntry) events.EventBridgeEvent {
	t.Helper()
	return events.EventBridgeEvent{
		ID:         "evt-1",
		Source:     aws.ToString(entry.Source),
		DetailType: aws.ToString(entry.DetailType),
		Detail:     json.RawMessage(aws.ToString(entry.Detail)),
	}
}

type account struct {
	Key     string
	Plan    string
	Version int
}

func unmarshallAccount(item ddbsdk.Item) (*account, error) {
	r := ddbsdk.NewAttributeReader("Account", item)
	r.CheckEntityType("Account")
	a := &account{
		Key:     r.Key(ddbsdk.AttrPartitionKey),
		Plan:    r.String("plan"),
		Version: r.Int(ddbsdk.AttrVersion),
	}
	return a, r.Err()
}

func newStore(t *testing.T) *ddbstore.Store {
	t.Helper()
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, table.TableDefinition{
		Name: "accounts",
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: ddbsdk.AttrPartitionKey, Kind: table.KeyKindS},
		},
		StreamEnabled: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func write(t *testing.T, store *ddbstore.Store, entity, key, plan string) {
	t.Helper()
	_, err := ddbsdk.BlindWrite(context.Background(), store, ddbsdk.BlindWriteRequest{
		Target: ddbsdk.Target{TableName: "accounts", EntityType: entity, Key: ddbsdk.KeyOf(key)},
		Write:  ddbsdk.Write{Attributes: map[string]any{"plan": plan}, Now: now},
	})
	require.NoError(t, err)
}

func newDispatcher(pub cdc.Publisher) *cdc.Dispatcher {
	return cdc.NewDispatcher(cdc.DispatcherConfig{
		Table:        "accounts",
		SourcePrefix: "billing",
		EntityTypes:  []string{"Account"},
		Publisher:    pub,
		Logger:       logging.Discard(),
	})
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes changes of CDC models only", func(t *testing.T) {
		store := newStore(t)
		write(t, store, "Account", "ACCOUNT#1", "free")
		write(t, store, "Session", "SESSION#1", "n/a")
		write(t, store, "Account", "ACCOUNT#1", "pro")

		pub := &publisher{}
		resp, err := newDispatcher(pub).Handle(ctx, store.StreamEvent())
		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)

		require.Len(t, pub.entries, 2)
		assert.Equal(t, "billing.accounts", aws.ToString(pub.entries[0].Source))
		assert.Equal(t, "Account.INSERT", aws.ToString(pub.entries[0].DetailType))
		assert.Equal(t, "Account.MODIFY", aws.ToString(pub.entries[1].DetailType))
		assert.Nil(t, pub.entries[0].EventBusName)

		detail := aws.ToString(pub.entries[1].Detail)
		assert.Equal(t, "Account", gjson.Get(detail, "entityType").String())
		assert.Equal(t, "accounts", gjson.Get(detail, "table").String())
		assert.Equal(t, "pro", gjson.Get(detail, "newImage.plan.S").String())
		assert.Equal(t, "free", gjson.Get(detail, "oldImage.plan.S").String())
	})

	t.Run("reports the failed record and every later one", func(t *testing.T) {
		store := newStore(t)
		write(t, store, "Account", "ACCOUNT#1", "free")
		write(t, store, "Account", "ACCOUNT#2", "free")
		write(t, store, "Account", "ACCOUNT#3", "free")
		ev := store.StreamEvent()
		require.Len(t, ev.Records, 3)

		pub := &publisher{failAt: 2}
		resp, err := newDispatcher(pub).Handle(ctx, ev)
		require.NoError(t, err)
		assert.Len(t, pub.entries, 1)
		assert.Equal(t, []events.DynamoDBBatchItemFailure{
			{ItemIdentifier: ev.Records[1].Change.SequenceNumber},
			{ItemIdentifier: ev.Records[2].Change.SequenceNumber},
		}, resp.BatchItemFailures)
	})

	t.Run("rejected entries fail the record", func(t *testing.T) {
		store := newStore(t)
		write(t, store, "Account", "ACCOUNT#1", "free")
		ev := store.StreamEvent()

		resp, err := newDispatcher(&publisher{reject: true}).Handle(ctx, ev)
		require.NoError(t, err)
		require.Len(t, resp.BatchItemFailures, 1)
		assert.Equal(t, ev.Records[0].Change.SequenceNumber, resp.BatchItemFailures[0].ItemIdentifier)
	})
}

func TestTrigger(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	write(t, store, "Account", "ACCOUNT#1", "free")
	write(t, store, "Account", "ACCOUNT#1", "pro")
	_, err := ddbsdk.Delete(ctx, store, ddbsdk.DeleteRequest{
		Target: ddbsdk.Target{TableName: "accounts", EntityType: "Account", Key: ddbsdk.KeyOf("ACCOUNT#1")},
	})
	require.NoError(t, err)

	pub := &publisher{}
	_, err = newDispatcher(pub).Handle(ctx, store.StreamEvent())
	require.NoError(t, err)
	require.Len(t, pub.entries, 3)

	var got []cdc.Change[account]
	trigger := &cdc.Trigger[account]{
		EntityType: "Account",
		Unmarshall: unmarshallAccount,
		Handler: func(ctx context.Context, change cdc.Change[account]) error {
			got = append(got, change)
			return nil
		},
		Logger: logging.Discard(),
	}
	for _, entry := range pub.entries {
		require.NoError(t, trigger.Handle(ctx, bridge(t, entry)))
	}

	require.Len(t, got, 3)
	assert.Equal(t, cdc.KindInsert, got[0].Kind)
	assert.Equal(t, "free", got[0].Record.Plan)
	assert.Nil(t, got[0].Old)

	assert.Equal(t, cdc.KindModify, got[1].Kind)
	assert.Equal(t, "pro", got[1].Record.Plan)
	assert.Equal(t, 2, got[1].Record.Version)
	require.NotNil(t, got[1].Old)
	assert.Equal(t, "free", got[1].Old.Plan)
	assert.Equal(t, "Account.MODIFY", got[1].Meta.Type)

	assert.Equal(t, cdc.KindRemove, got[2].Kind)
	assert.Equal(t, "pro", got[2].Record.Plan)

	t.Run("handler errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		failing := &cdc.Trigger[account]{
			EntityType: "Account",
			Unmarshall: unmarshallAccount,
			Handler:    func(context.Context, cdc.Change[account]) error { return boom },
			Logger:     logging.Discard(),
		}
		assert.ErrorIs(t, failing.Handle(ctx, bridge(t, pub.entries[0])), boom)
	})

	t.Run("rejects changes of another model", func(t *testing.T) {
		other := &cdc.Trigger[account]{EntityType: "Session", Unmarshall: unmarshallAccount, Logger: logging.Discard()}
		err := other.Handle(ctx, bridge(t, pub.entries[0]))
		assert.ErrorContains(t, err, `is a change of "Account", want "Session"`)
	})

	t.Run("rejects events without an envelope", func(t *testing.T) {
		err := trigger.Handle(ctx, events.EventBridgeEvent{ID: "x", Detail: json.RawMessage(`{}`)})
		assert.ErrorContains(t, err, "carries no change envelope")
	})
}

type summary struct {
	Plan    string
	Version int
}

type enricherFixture struct {
	target   *summary
	creates  int
	updates  int
	conflict int // number of writes failing before one succeeds
}

func (f *enricherFixture) enricher() *cdc.Enricher[account, summary, summary, summary] {
	return &cdc.Enricher[account, summary, summary, summary]{
		SourceType: "Account",
		TargetType: "Summary",
		Unmarshall: unmarshallAccount,
		Load: func(ctx context.Context, src *account) (*summary, error) {
			if f.target == nil {
				return nil, ddbsdk.ErrNotFound
			}
			cp := *f.target
			return &cp, nil
		},
		MapCreate: func(ctx context.Context, change cdc.Change[account]) (*summary, error) {
			return &summary{Plan: change.Record.Plan}, nil
		},
		MapUpdate: func(ctx context.Context, change cdc.Change[account], target *summary) (*summary, error) {
			if target.Plan == change.Record.Plan {
				return nil, nil
			}
			return &summary{Plan: change.Record.Plan}, nil
		},
		Create: func(ctx context.Context, in *summary) error {
			f.creates++
			if f.conflict > 0 {
				f.conflict--
				f.target = &summary{Plan: "raced", Version: 1}
				return &ddbsdk.Error{Kind: ddbsdk.KindAlreadyExists, Op: "create", Model: "Summary"}
			}
			f.target = &summary{Plan: in.Plan, Version: 1}
			return nil
		},
		Update: func(ctx context.Context, target *summary, in *summary) error {
			f.updates++
			if f.conflict > 0 {
				f.conflict--
				return &ddbsdk.Error{Kind: ddbsdk.KindOptimisticLockConflict, Op: "update", Model: "Summary"}
			}
			f.target = &summary{Plan: in.Plan, Version: target.Version + 1}
			return nil
		},
		Logger: logging.Discard(),
	}
}

func TestEnricher(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	write(t, store, "Account", "ACCOUNT#1", "pro")
	pub := &publisher{}
	_, err := newDispatcher(pub).Handle(ctx, store.StreamEvent())
	require.NoError(t, err)
	require.Len(t, pub.entries, 1)
	ev := bridge(t, pub.entries[0])

	t.Run("creates a missing target", func(t *testing.T) {
		f := &enricherFixture{}
		require.NoError(t, f.enricher().Handle(ctx, ev))
		assert.Equal(t, &summary{Plan: "pro", Version: 1}, f.target)
		assert.Equal(t, 1, f.creates)
	})

	t.Run("replaying is a no-op", func(t *testing.T) {
		f := &enricherFixture{}
		e := f.enricher()
		require.NoError(t, e.Handle(ctx, ev))
		require.NoError(t, e.Handle(ctx, ev))
		assert.Equal(t, &summary{Plan: "pro", Version: 1}, f.target)
		assert.Equal(t, 0, f.updates)
	})

	t.Run("a lost create race merges into the winner", func(t *testing.T) {
		f := &enricherFixture{conflict: 1}
		require.NoError(t, f.enricher().Handle(ctx, ev))
		assert.Equal(t, 1, f.creates)
		assert.Equal(t, 1, f.updates)
		assert.Equal(t, &summary{Plan: "pro", Version: 2}, f.target)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		f := &enricherFixture{target: &summary{Plan: "free", Version: 4}, conflict: 10}
		err := f.enricher().Handle(ctx, ev)
		assert.ErrorIs(t, err, ddbsdk.ErrOptimisticLockConflict)
		assert.ErrorContains(t, err, "giving up after 3 attempts")
		assert.Equal(t, cdc.DefaultMaxAttempts, f.updates)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		f := &enricherFixture{}
		e := f.enricher()
		e.Load = func(context.Context, *account) (*summary, error) {
			return nil, &ddbsdk.Error{Kind: ddbsdk.KindUnexpectedBackendFault}
		}
		err := e.Handle(ctx, ev)
		assert.ErrorIs(t, err, ddbsdk.ErrUnexpectedBackendFault)
		assert.Equal(t, 0, f.creates)
	})
}

func TestFromStreamImage(t *testing.T) {
	item, err := cdc.FromStreamImage(map[string]events.DynamoDBAttributeValue{
		"s":    events.NewStringAttribute("a"),
		"n":    events.NewNumberAttribute("1.5"),
		"b":    events.NewBooleanAttribute(true),
		"null": events.NewNullAttribute(),
		"l":    events.NewListAttribute([]events.DynamoDBAttributeValue{events.NewStringAttribute("x")}),
		"m":    events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{"k": events.NewNumberAttribute("2")}),
		"ss":   events.NewStringSetAttribute([]string{"a", "b"}),
	})
	require.NoError(t, err)

	r := ddbsdk.NewAttributeReader("T", item)
	assert.Equal(t, "a", r.String("s"))
	assert.Equal(t, 1.5, r.Float("n"))
	assert.True(t, r.Bool("b"))
	assert.False(t, r.Has("null"))
	assert.Equal(t, []string{"x"}, ddbsdk.ReadRequired[[]string](r, "l"))
	assert.Equal(t, map[string]int{"k": 2}, ddbsdk.ReadRequired[map[string]int](r, "m"))
	require.NoError(t, r.Err())
	assert.Len(t, item, 7)
}
