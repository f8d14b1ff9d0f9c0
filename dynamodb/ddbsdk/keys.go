package ddbsdk

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// KeySeparator joins the segments of every generated key.
const KeySeparator = "#"

// JoinKey joins a literal prefix and field segments. Empty segments and an
// empty prefix are omitted.
func JoinKey(prefix string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, KeySeparator)
}

// JoinKeyPadded is JoinKey keeping empty segments in place, so "A##C" is
// written for an empty middle segment. It matches keys written by schemas
// generated with legacyEmptyKeySegmentBehavior.
func JoinKeyPadded(prefix string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, segments...)
	return strings.Join(parts, KeySeparator)
}

// FormatEpochMillis is the key segment form of a timestamp.
func FormatEpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func FormatInt(i int) string {
	return strconv.Itoa(i)
}

func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}

// SegmentOf formats an optional value, yielding the empty segment for nil.
func SegmentOf[T any](v *T, format func(T) string) string {
	if v == nil {
		return ""
	}
	return format(*v)
}

// Deref returns the zero value for nil.
func Deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Bound is a sort key segment supplied to a query. A nil Bound marks the
// field, and every field after it, as unbound.
func Bound[T any](v *T, format func(T) string) *string {
	if v == nil {
		return nil
	}
	s := format(*v)
	return &s
}

// Identity is the format function for string segments.
func Identity(s string) string { return s }

// Operator compares the last bound sort key field.
type Operator string

const (
	OpUnset          Operator = ""
	OpEqual          Operator = "="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpBeginsWith     Operator = "begins_with"
)

// SortKeyCondition is the sort key part of a key condition expression.
type SortKeyCondition struct {
	Op    Operator
	Value string
}

// NewSortKeyCondition builds the sort key condition for a query binding a
// leading subset of a sort key template's fields.
//
// Without an operator a full binding is an equality match and a partial one
// matches every key under the bound prefix. Range operators compare the key
// string built from the bound fields. It returns nil when nothing constrains
// the sort key.
func NewSortKeyCondition(prefix string, total int, op Operator, pad bool, segments ...*string) (*SortKeyCondition, error) {
	var bound []string
	for i, s := range segments {
		if s == nil {
			for _, rest := range segments[i+1:] {
				if rest != nil {
					return nil, fmt.Errorf("sort key field %d is bound but field %d is not: fields must be bound in order", i+1, i)
				}
			}
			break
		}
		bound = append(bound, *s)
	}

	join := JoinKey
	if pad {
		join = JoinKeyPadded
	}

	if len(bound) == 0 {
		switch op {
		case OpUnset, OpBeginsWith:
			if prefix == "" {
				return nil, nil
			}
			return &SortKeyCondition{Op: OpBeginsWith, Value: prefix + KeySeparator}, nil
		default:
			return nil, fmt.Errorf("operator %q needs at least one bound sort key field", op)
		}
	}

	value := join(prefix, bound...)
	switch op {
	case OpUnset:
		if len(bound) < total {
			return &SortKeyCondition{Op: OpBeginsWith, Value: value + KeySeparator}, nil
		}
		return &SortKeyCondition{Op: OpEqual, Value: value}, nil
	case OpEqual:
		if len(bound) < total {
			return nil, fmt.Errorf("equality needs all %d sort key fields, got %d", total, len(bound))
		}
		return &SortKeyCondition{Op: OpEqual, Value: value}, nil
	case OpBeginsWith, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return &SortKeyCondition{Op: op, Value: value}, nil
	}
	return nil, fmt.Errorf("unknown sort key operator %q", op)
}

func (c SortKeyCondition) build(attr string) expression.KeyConditionBuilder {
	key := expression.Key(attr)
	switch c.Op {
	case OpBeginsWith:
		return expression.KeyBeginsWith(key, c.Value)
	case OpLess:
		return expression.KeyLessThan(key, expression.Value(c.Value))
	case OpLessOrEqual:
		return expression.KeyLessThanEqual(key, expression.Value(c.Value))
	case OpGreater:
		return expression.KeyGreaterThan(key, expression.Value(c.Value))
	case OpGreaterOrEqual:
		return expression.KeyGreaterThanEqual(key, expression.Value(c.Value))
	default:
		return expression.KeyEqual(key, expression.Value(c.Value))
	}
}
