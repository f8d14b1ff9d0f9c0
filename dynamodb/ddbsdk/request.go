package ddbsdk

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Target identifies the record an operation acts on.
type Target struct {
	TableName  string
	EntityType string
	Key        Item
}

// KeyOf builds the physical primary key. The sort key is omitted for tables
// with a simple primary key.
func KeyOf(partition string, sort ...string) Item {
	key := Item{AttrPartitionKey: &types.AttributeValueMemberS{Value: partition}}
	if len(sort) > 0 {
		key[AttrSortKey] = &types.AttributeValueMemberS{Value: sort[0]}
	}
	return key
}

// Write is the payload shared by create, blind write and update.
type Write struct {
	// Attributes holds the user columns, computed columns and every
	// secondary index attribute of the record.
	Attributes map[string]any
	// KeepExisting lists attributes of Attributes that a blind write must not
	// overwrite once set, such as index keys derived from createdAt.
	KeepExisting []string
	// Remove lists attributes the record must no longer hold, such as the
	// columns of unset optional fields that feed an index key. Create
	// ignores it.
	Remove []string
	Now    time.Time
	// ExpiresAt sets the TTL attribute. TTL, when positive, takes precedence
	// and expires the record TTL after Now.
	ExpiresAt *time.Time
	TTL       time.Duration
}

func (w Write) expiry() *time.Time {
	if w.TTL > 0 {
		t := w.Now.Add(w.TTL)
		return &t
	}
	return w.ExpiresAt
}

func (w Write) keeps(attr string) bool {
	for _, k := range w.KeepExisting {
		if k == attr {
			return true
		}
	}
	return false
}

func (t Target) exists() expression.ConditionBuilder {
	return expression.AttributeExists(expression.Name(AttrPartitionKey)).
		And(expression.Name(AttrEntityType).Equal(expression.Value(t.EntityType)))
}

// ownedOrNew holds when the stored record, if any, carries the entity tag.
func (t Target) ownedOrNew() expression.ConditionBuilder {
	return expression.AttributeNotExists(expression.Name(AttrEntityType)).
		Or(expression.Name(AttrEntityType).Equal(expression.Value(t.EntityType)))
}

// Unset returns the columns of cols that attrs does not hold, in order.
func Unset(attrs map[string]any, cols []string) []string {
	var out []string
	for _, c := range cols {
		if _, ok := attrs[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// writeOps renders the user part of a write: set ops for Attributes, with
// if_not_exists for KeepExisting, and remove ops for Remove.
func (w Write) writeOps() []UpdateOp {
	var ops []UpdateOp
	for _, o := range setAll(w.Attributes) {
		if w.keeps(o.Field()) {
			ops = append(ops, SetIfNotExistsOp(o.Field(), w.Attributes[o.Field()]))
			continue
		}
		ops = append(ops, o)
	}
	for _, attr := range w.Remove {
		if _, ok := w.Attributes[attr]; ok {
			continue
		}
		ops = append(ops, RemoveFieldOp(attr))
	}
	return ops
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
