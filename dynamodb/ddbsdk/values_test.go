package ddbsdk

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeWriterReader(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	w := NewAttributeWriter()
	w.String("name", "alice")
	w.Int("age", 42)
	w.Float("score", 1.5)
	w.Bool("active", true)
	w.Time("joined", now)
	w.EpochSeconds("_ttl", now)
	w.Set("tags", []string{"a", "b"})

	item, err := w.Item()
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1714979289123"}, item["joined"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1714979289"}, item["_ttl"])

	item[AttrEntityType] = &types.AttributeValueMemberS{Value: "Account"}
	item["gone"] = &types.AttributeValueMemberNULL{Value: true}
	r := NewAttributeReader("Account", item)
	r.CheckEntityType("Account")
	assert.Equal(t, "alice", r.String("name"))
	assert.Equal(t, 42, r.Int("age"))
	assert.Equal(t, 1.5, r.Float("score"))
	assert.True(t, r.Bool("active"))
	assert.Equal(t, now, r.Time("joined"))
	assert.Equal(t, now.Truncate(time.Second), r.EpochSeconds("_ttl"))
	assert.Equal(t, []string{"a", "b"}, ReadRequired[[]string](r, "tags"))
	assert.Nil(t, r.OptionalTime("gone"))
	assert.Nil(t, ReadOptional[string](r, "missing"))
	assert.Equal(t, "alice", *ReadOptional[string](r, "name"))
	require.NoError(t, r.Err())
}

func TestAttributeReader_CollectsErrors(t *testing.T) {
	item := Item{
		AttrEntityType: &types.AttributeValueMemberS{Value: "Order"},
		"age":          &types.AttributeValueMemberS{Value: "not a number"},
	}
	r := NewAttributeReader("Account", item)
	r.CheckEntityType("Account")
	_ = r.Int("age")
	_ = r.String("name")

	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Contains(t, err.Error(), `"Order"`)
	assert.Contains(t, err.Error(), `"age"`)
	assert.Contains(t, err.Error(), `"name"`)
}

func TestCursor(t *testing.T) {
	key := Item{
		AttrPartitionKey: &types.AttributeValueMemberS{Value: "P"},
		"byEmail_pk":     &types.AttributeValueMemberS{Value: "a@x"},
	}
	token, err := encodeCursor(key)
	require.NoError(t, err)
	got, err := decodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	empty, err := encodeCursor(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty)

	_, err = encodeCursor(Item{"n": &types.AttributeValueMemberN{Value: "1"}})
	require.Error(t, err)
	_, err = decodeCursor("!!")
	require.Error(t, err)
}

type plan string

func (p plan) valid() bool { return p == "free" || p == "pro" }

func TestReadEnum(t *testing.T) {
	item := Item{
		"plan":    &types.AttributeValueMemberS{Value: "pro"},
		"old":     &types.AttributeValueMemberS{Value: "legacy"},
		"nothing": &types.AttributeValueMemberNULL{Value: true},
	}
	r := NewAttributeReader("Account", item)
	assert.Equal(t, plan("pro"), ReadEnum(r, "plan", plan.valid))
	assert.Nil(t, ReadOptionalEnum(r, "nothing", plan.valid))
	require.NoError(t, r.Err())

	_ = ReadOptionalEnum(r, "old", plan.valid)
	err := r.Err()
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Contains(t, err.Error(), `"legacy" is not a known value`)
}

func TestResultOf(t *testing.T) {
	unmarshall := func(item Item) (*string, error) {
		r := NewAttributeReader("Account", item)
		v := r.String("name")
		return &v, r.Err()
	}

	res, err := ResultOf(&Output{}, unmarshall)
	require.NoError(t, err)
	assert.Nil(t, res.Item)

	res, err = ResultOf(&Output{Item: Item{"name": &types.AttributeValueMemberS{Value: "alice"}}}, unmarshall)
	require.NoError(t, err)
	assert.Equal(t, "alice", *res.Item)

	_, err = PageOf(&QueryOutput{Items: []Item{{"other": &types.AttributeValueMemberS{Value: "x"}}}}, unmarshall)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestKeysPageOf(t *testing.T) {
	out := &QueryOutput{
		Items: []Item{
			KeyOf("ACCOUNT#1", "GITHUB"),
			KeyOf("ACCOUNT#2", "GITLAB"),
		},
		NextToken: "next",
	}
	page, err := KeysPageOf(out, "Account", true)
	require.NoError(t, err)
	assert.Equal(t, "next", page.NextToken)
	require.Len(t, page.NodeIDs, 2)

	id, err := DecodeNodeID(page.NodeIDs[1])
	require.NoError(t, err)
	assert.Equal(t, NodeID{EntityType: "Account", PartitionKey: "ACCOUNT#2", SortKey: "GITLAB", Composite: true}, id)

	_, err = KeysPageOf(&QueryOutput{Items: []Item{{}}}, "Account", true)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}
