package ddbsdk_test

import (
	"context"
	"testing"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/acksell/ddbsdl/dynamodb/ddbstore"
	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTable = table.TableDefinition{
	Name: "accounts",
	KeyDefinitions: table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: ddbsdk.AttrPartitionKey, Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: ddbsdk.AttrSortKey, Kind: table.KeyKindS},
	},
	TimeToLiveKey: ddbsdk.AttrTTL,
	GSIs: []table.GSIDefinition{{
		Name: "byEmail",
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: "byEmail_pk", Kind: table.KeyKindS},
			SortKey:      table.KeyDef{Name: "byEmail_sk", Kind: table.KeyKindS},
		},
		Projection: table.ProjectAll,
	}},
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *ddbstore.Store {
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, testTable)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func target(entity, id string) ddbsdk.Target {
	return ddbsdk.Target{
		TableName:  testTable.Name,
		EntityType: entity,
		Key:        ddbsdk.KeyOf(ddbsdk.JoinKey("ACCOUNT", id), "PROFILE"),
	}
}

func number(t *testing.T, item ddbsdk.Item, attr string) string {
	t.Helper()
	n, ok := item[attr].(*types.AttributeValueMemberN)
	require.True(t, ok, "attribute %s is %T", attr, item[attr])
	return n.Value
}

func str(t *testing.T, item ddbsdk.Item, attr string) string {
	t.Helper()
	s, ok := item[attr].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %s is %T", attr, item[attr])
	return s.Value
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	req := ddbsdk.CreateRequest{
		Target: target("Account", "a1"),
		Write: ddbsdk.Write{
			Attributes: map[string]any{"email": "a@x", "byEmail_pk": "a@x", "byEmail_sk": "a1"},
			Now:        now,
			TTL:        time.Hour,
		},
	}

	out, err := ddbsdk.Create(ctx, db, req)
	require.NoError(t, err)
	assert.Equal(t, "1", number(t, out.Item, ddbsdk.AttrVersion))
	assert.Equal(t, "Account", str(t, out.Item, ddbsdk.AttrEntityType))
	assert.Equal(t, ddbsdk.FormatEpochMillis(now), number(t, out.Item, ddbsdk.AttrCreatedAt))
	assert.Equal(t, ddbsdk.FormatEpochMillis(now), number(t, out.Item, ddbsdk.AttrUpdatedAt))
	assert.Equal(t, "1709298000", number(t, out.Item, ddbsdk.AttrTTL))
	require.NotNil(t, out.Metadata.ConsumedCapacity)

	_, err = ddbsdk.Create(ctx, db, req)
	assert.ErrorIs(t, err, ddbsdk.ErrAlreadyExists)

	t.Run("another model at the same key also conflicts", func(t *testing.T) {
		other := req
		other.EntityType = "Order"
		_, err := ddbsdk.Create(ctx, db, other)
		assert.ErrorIs(t, err, ddbsdk.ErrAlreadyExists)
	})
}

func TestRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
		Target: target("Account", "a1"),
		Write:  ddbsdk.Write{Attributes: map[string]any{"email": "a@x"}, Now: now},
	})
	require.NoError(t, err)

	out, err := ddbsdk.Read(ctx, db, ddbsdk.ReadRequest{Target: target("Account", "a1")})
	require.NoError(t, err)
	assert.Equal(t, "a@x", str(t, out.Item, "email"))
	assert.NotContains(t, out.Item, ddbsdk.AttrTTL)

	_, err = ddbsdk.Read(ctx, db, ddbsdk.ReadRequest{Target: target("Account", "missing")})
	assert.ErrorIs(t, err, ddbsdk.ErrNotFound)

	_, err = ddbsdk.Read(ctx, db, ddbsdk.ReadRequest{Target: target("Order", "a1")})
	assert.ErrorIs(t, err, ddbsdk.ErrDataIntegrity)

	t.Run("by node id", func(t *testing.T) {
		id := ddbsdk.EncodeNodeID(ddbsdk.NodeID{EntityType: "Account", PartitionKey: "ACCOUNT#a1", SortKey: "PROFILE"})
		out, err := ddbsdk.ReadByNodeID(ctx, db, testTable.Name, "Account", id, true)
		require.NoError(t, err)
		assert.Equal(t, "a@x", str(t, out.Item, "email"))

		_, err = ddbsdk.ReadByNodeID(ctx, db, testTable.Name, "Order", id, true)
		assert.ErrorIs(t, err, ddbsdk.ErrNotFound)
		_, err = ddbsdk.ReadByNodeID(ctx, db, testTable.Name, "Account", "garbage!", true)
		assert.ErrorIs(t, err, ddbsdk.ErrNotFound)
	})
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
		Target: target("Account", "a1"),
		Write:  ddbsdk.Write{Attributes: map[string]any{"email": "a@x"}, Now: now},
	})
	require.NoError(t, err)

	later := now.Add(time.Minute)
	update := func(version *int) (*ddbsdk.Output, error) {
		return ddbsdk.Update(ctx, db, ddbsdk.UpdateRequest{
			Target:  target("Account", "a1"),
			Write:   ddbsdk.Write{Attributes: map[string]any{"email": "b@x"}, Now: later},
			Version: version,
		})
	}

	one := 1
	out, err := update(&one)
	require.NoError(t, err)
	assert.Equal(t, "2", number(t, out.Item, ddbsdk.AttrVersion))
	assert.Equal(t, "b@x", str(t, out.Item, "email"))
	assert.Equal(t, ddbsdk.FormatEpochMillis(now), number(t, out.Item, ddbsdk.AttrCreatedAt))
	assert.Equal(t, ddbsdk.FormatEpochMillis(later), number(t, out.Item, ddbsdk.AttrUpdatedAt))

	_, err = update(&one)
	assert.ErrorIs(t, err, ddbsdk.ErrOptimisticLockConflict)

	out, err = update(nil)
	require.NoError(t, err, "an update without a version is unconditional on it")
	assert.Equal(t, "3", number(t, out.Item, ddbsdk.AttrVersion))

	t.Run("missing record", func(t *testing.T) {
		_, err := ddbsdk.Update(ctx, db, ddbsdk.UpdateRequest{
			Target: target("Account", "missing"),
			Write:  ddbsdk.Write{Attributes: map[string]any{"email": "b@x"}, Now: later},
		})
		assert.ErrorIs(t, err, ddbsdk.ErrNotFound)
	})

	t.Run("record of another model", func(t *testing.T) {
		_, err := ddbsdk.Update(ctx, db, ddbsdk.UpdateRequest{
			Target: target("Order", "a1"),
			Write:  ddbsdk.Write{Attributes: map[string]any{"email": "b@x"}, Now: later},
		})
		assert.ErrorIs(t, err, ddbsdk.ErrDataIntegrity)
	})
}

func TestBlindWrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	write := func(at time.Time, email string) *ddbsdk.Output {
		out, err := ddbsdk.BlindWrite(ctx, db, ddbsdk.BlindWriteRequest{
			Target: target("Account", "a1"),
			Write: ddbsdk.Write{
				Attributes:   map[string]any{"email": email, "byEmail_pk": email, "byEmail_sk": ddbsdk.FormatEpochMillis(at)},
				KeepExisting: []string{"byEmail_sk"},
				Now:          at,
			},
		})
		require.NoError(t, err)
		return out
	}

	first := write(now, "a@x")
	assert.Equal(t, "1", number(t, first.Item, ddbsdk.AttrVersion))

	later := now.Add(time.Hour)
	second := write(later, "b@x")
	assert.Equal(t, "2", number(t, second.Item, ddbsdk.AttrVersion))
	assert.Equal(t, "b@x", str(t, second.Item, "email"))
	assert.Equal(t, ddbsdk.FormatEpochMillis(now), number(t, second.Item, ddbsdk.AttrCreatedAt))
	assert.Equal(t, ddbsdk.FormatEpochMillis(later), number(t, second.Item, ddbsdk.AttrUpdatedAt))
	assert.Equal(t, ddbsdk.FormatEpochMillis(now), str(t, second.Item, "byEmail_sk"), "kept attributes are only set once")
}

func TestBlindWriteKeepsForeignRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
		Target: target("Order", "a1"),
		Write:  ddbsdk.Write{Attributes: map[string]any{"email": "a@x"}, Now: now},
	})
	require.NoError(t, err)

	_, err = ddbsdk.BlindWrite(ctx, db, ddbsdk.BlindWriteRequest{
		Target: target("Account", "a1"),
		Write:  ddbsdk.Write{Attributes: map[string]any{"email": "b@x"}, Now: now},
	})
	assert.ErrorIs(t, err, ddbsdk.ErrDataIntegrity)

	read, err := ddbsdk.Read(ctx, db, ddbsdk.ReadRequest{Target: target("Order", "a1")})
	require.NoError(t, err)
	assert.Equal(t, "Order", str(t, read.Item, ddbsdk.AttrEntityType))
	assert.Equal(t, "a@x", str(t, read.Item, "email"))
	assert.Equal(t, "1", number(t, read.Item, ddbsdk.AttrVersion))
}

func TestWriteRemovesUnsetAttributes(t *testing.T) {
	indexed := []string{"email", "byEmail_pk", "byEmail_sk"}
	full := map[string]any{"email": "a@x", "byEmail_pk": "a@x", "byEmail_sk": "a1"}
	partial := map[string]any{"byEmail_sk": "a1"}

	tests := []struct {
		name  string
		write func(ctx context.Context, db *ddbstore.Store, w ddbsdk.Write) error
	}{
		{
			name: "update",
			write: func(ctx context.Context, db *ddbstore.Store, w ddbsdk.Write) error {
				_, err := ddbsdk.Update(ctx, db, ddbsdk.UpdateRequest{Target: target("Account", "a1"), Write: w})
				return err
			},
		},
		{
			name: "blind write",
			write: func(ctx context.Context, db *ddbstore.Store, w ddbsdk.Write) error {
				_, err := ddbsdk.BlindWrite(ctx, db, ddbsdk.BlindWriteRequest{Target: target("Account", "a1"), Write: w})
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
				Target: target("Account", "a1"),
				Write:  ddbsdk.Write{Attributes: full, Remove: indexed, Now: now},
			})
			require.NoError(t, err, "create ignores Remove")

			require.NoError(t, tt.write(ctx, db, ddbsdk.Write{
				Attributes: partial,
				Remove:     ddbsdk.Unset(partial, indexed),
				Now:        now.Add(time.Minute),
			}))

			read, err := ddbsdk.Read(ctx, db, ddbsdk.ReadRequest{Target: target("Account", "a1")})
			require.NoError(t, err)
			assert.NotContains(t, read.Item, "email")
			assert.NotContains(t, read.Item, "byEmail_pk")
			assert.Equal(t, "a1", str(t, read.Item, "byEmail_sk"))

			out, err := ddbsdk.Query(ctx, db, ddbsdk.QueryRequest{
				TableName:      testTable.Name,
				IndexName:      "byEmail",
				EntityType:     "Account",
				PartitionAttr:  "byEmail_pk",
				PartitionValue: "a@x",
			})
			require.NoError(t, err)
			assert.Empty(t, out.Items, "the index entry goes with its key")
		})
	}
}

func TestUnset(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		cols  []string
		want  []string
	}{
		{name: "all set", attrs: map[string]any{"a": 1, "b": 2}, cols: []string{"a", "b"}, want: nil},
		{name: "keeps column order", attrs: map[string]any{"b": 2}, cols: []string{"c", "b", "a"}, want: []string{"c", "a"}},
		{name: "no columns", attrs: map[string]any{"a": 1}, cols: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ddbsdk.Unset(tt.attrs, tt.cols))
		})
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
		Target: target("Account", "a1"),
		Write:  ddbsdk.Write{Attributes: map[string]any{"email": "a@x"}, Now: now},
	})
	require.NoError(t, err)

	_, err = ddbsdk.Delete(ctx, db, ddbsdk.DeleteRequest{Target: target("Order", "a1")})
	assert.ErrorIs(t, err, ddbsdk.ErrNotFound, "a record of another model is not deleted")

	out, err := ddbsdk.Delete(ctx, db, ddbsdk.DeleteRequest{Target: target("Account", "a1")})
	require.NoError(t, err)
	assert.Equal(t, "a@x", str(t, out.Item, "email"))

	_, err = ddbsdk.Delete(ctx, db, ddbsdk.DeleteRequest{Target: target("Account", "a1")})
	assert.ErrorIs(t, err, ddbsdk.ErrNotFound)
}

func TestTouch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
		Target: target("Account", "a1"),
		Write:  ddbsdk.Write{Attributes: map[string]any{"email": "a@x"}, Now: now, TTL: time.Hour},
	})
	require.NoError(t, err)

	later := now.Add(30 * time.Minute)
	out, err := ddbsdk.Touch(ctx, db, ddbsdk.TouchRequest{Target: target("Account", "a1"), Now: later, TTL: time.Hour})
	require.NoError(t, err)
	assert.Nil(t, out.Item)

	read, err := ddbsdk.Read(ctx, db, ddbsdk.ReadRequest{Target: target("Account", "a1")})
	require.NoError(t, err)
	assert.Equal(t, "2", number(t, read.Item, ddbsdk.AttrVersion))
	assert.Equal(t, ddbsdk.FormatEpochMillis(now), number(t, read.Item, ddbsdk.AttrUpdatedAt), "touch leaves updatedAt alone")
	assert.Equal(t, "1709299800", number(t, read.Item, ddbsdk.AttrTTL))

	_, err = ddbsdk.Touch(ctx, db, ddbsdk.TouchRequest{Target: target("Account", "missing"), Now: later})
	assert.ErrorIs(t, err, ddbsdk.ErrNotFound)
}

func TestQuery(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i, id := range []string{"a1", "a2", "a3"} {
		_, err := ddbsdk.Create(ctx, db, ddbsdk.CreateRequest{
			Target: target("Account", id),
			Write: ddbsdk.Write{
				Attributes: map[string]any{
					"byEmail_pk": "team",
					"byEmail_sk": ddbsdk.JoinKey("MEMBER", ddbsdk.FormatEpochMillis(now.Add(time.Duration(i)*time.Hour)), id),
				},
				Now: now,
			},
		})
		require.NoError(t, err)
	}

	base := ddbsdk.QueryRequest{
		TableName:      testTable.Name,
		IndexName:      "byEmail",
		EntityType:     "Account",
		PartitionAttr:  "byEmail_pk",
		PartitionValue: "team",
		SortAttr:       "byEmail_sk",
	}

	t.Run("pages through the partition", func(t *testing.T) {
		req := base
		req.Limit = 2
		var keys []string
		for {
			out, err := ddbsdk.Query(ctx, db, req)
			require.NoError(t, err)
			for _, item := range out.Items {
				keys = append(keys, str(t, item, ddbsdk.AttrPartitionKey))
			}
			if out.NextToken == "" {
				break
			}
			req.NextToken = out.NextToken
		}
		assert.Equal(t, []string{"ACCOUNT#a1", "ACCOUNT#a2", "ACCOUNT#a3"}, keys)
	})

	t.Run("sort key range, descending", func(t *testing.T) {
		cond, err := ddbsdk.NewSortKeyCondition("MEMBER", 2, ddbsdk.OpGreaterOrEqual, false,
			ddbsdk.Bound(ptr(now.Add(time.Hour)), ddbsdk.FormatEpochMillis), nil)
		require.NoError(t, err)
		req := base
		req.Sort = cond
		req.Descending = true
		out, err := ddbsdk.Query(ctx, db, req)
		require.NoError(t, err)
		require.Len(t, out.Items, 2)
		assert.Equal(t, "ACCOUNT#a3", str(t, out.Items[0], ddbsdk.AttrPartitionKey))
		assert.Empty(t, out.NextToken)
	})

	t.Run("foreign records in the partition are a data integrity fault", func(t *testing.T) {
		_, err := db.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &testTable.Name,
			Item: ddbsdk.Item{
				ddbsdk.AttrPartitionKey: &types.AttributeValueMemberS{Value: "X"},
				ddbsdk.AttrSortKey:      &types.AttributeValueMemberS{Value: "X"},
				ddbsdk.AttrEntityType:   &types.AttributeValueMemberS{Value: "Order"},
				"byEmail_pk":            &types.AttributeValueMemberS{Value: "team"},
				"byEmail_sk":            &types.AttributeValueMemberS{Value: "MEMBER#0"},
			},
		})
		require.NoError(t, err)
		_, err = ddbsdk.Query(ctx, db, base)
		assert.ErrorIs(t, err, ddbsdk.ErrDataIntegrity)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := base
		req.NextToken = "not a token"
		_, err := ddbsdk.Query(ctx, db, req)
		assert.ErrorIs(t, err, ddbsdk.ErrUnexpectedFault)
	})
}

// noCapacity drops the consumed capacity the backend contract requires.
type noCapacity struct {
	*ddbstore.Store
}

func (n noCapacity) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	out, err := n.Store.PutItem(ctx, in, optFns...)
	if out != nil {
		out.ConsumedCapacity = nil
	}
	return out, err
}

func TestMissingCapacityIsAssertionFault(t *testing.T) {
	db := noCapacity{newTestDB(t)}
	_, err := ddbsdk.Create(context.Background(), db, ddbsdk.CreateRequest{
		Target: target("Account", "a1"),
		Write:  ddbsdk.Write{Now: now},
	})
	var fault *ddbsdk.AssertionFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "create", fault.Op)
}

func ptr[T any](v T) *T { return &v }
