package ddbsdk

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AttributeWriter collects the column values of one record. Values are kept
// as plain Go values and marshalled once, so the same set feeds both PutItem
// items and UpdateItem SET clauses.
type AttributeWriter struct {
	values map[string]any
}

func NewAttributeWriter() *AttributeWriter {
	return &AttributeWriter{values: map[string]any{}}
}

// Set writes any value attributevalue.Marshal understands.
func (w *AttributeWriter) Set(col string, v any) {
	w.values[col] = v
}

func (w *AttributeWriter) String(col, v string) {
	w.values[col] = v
}

func (w *AttributeWriter) Int(col string, v int) {
	w.values[col] = v
}

func (w *AttributeWriter) Float(col string, v float64) {
	w.values[col] = v
}

func (w *AttributeWriter) Bool(col string, v bool) {
	w.values[col] = v
}

// Time stores a timestamp as epoch milliseconds.
func (w *AttributeWriter) Time(col string, t time.Time) {
	w.values[col] = t.UnixMilli()
}

// EpochSeconds stores a timestamp the way DynamoDB TTL expects it.
func (w *AttributeWriter) EpochSeconds(col string, t time.Time) {
	w.values[col] = t.Unix()
}

// Values returns the collected columns. The map is owned by the writer.
func (w *AttributeWriter) Values() map[string]any {
	return w.values
}

func (w *AttributeWriter) Item() (Item, error) {
	item, err := attributevalue.MarshalMap(w.values)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return item, nil
}

// AttributeReader decodes the columns of a stored record. Decoding problems
// are collected and reported together by Err as a DataIntegrity error.
type AttributeReader struct {
	model string
	item  Item
	errs  []error
}

func NewAttributeReader(model string, item Item) *AttributeReader {
	return &AttributeReader{model: model, item: item}
}

// Has reports whether the column is present and not NULL.
func (r *AttributeReader) Has(col string) bool {
	av, ok := r.item[col]
	if !ok {
		return false
	}
	_, isNull := av.(*types.AttributeValueMemberNULL)
	return !isNull
}

func (r *AttributeReader) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

// CheckEntityType asserts the record was written by the expected model.
func (r *AttributeReader) CheckEntityType(want string) {
	got, ok := r.item[AttrEntityType].(*types.AttributeValueMemberS)
	if !ok {
		r.fail("entity type tag %q missing", AttrEntityType)
		return
	}
	if got.Value != want {
		r.fail("entity type tag is %q, want %q", got.Value, want)
	}
}

// ReadRequired decodes a column that must be present and non-null.
func ReadRequired[T any](r *AttributeReader, col string) T {
	var v T
	if !r.Has(col) {
		r.fail("required column %q is missing or null", col)
		return v
	}
	if err := attributevalue.Unmarshal(r.item[col], &v); err != nil {
		r.fail("column %q: %w", col, err)
	}
	return v
}

// ReadOptional decodes a column that may be absent, returning nil when it is.
func ReadOptional[T any](r *AttributeReader, col string) *T {
	if !r.Has(col) {
		return nil
	}
	var v T
	if err := attributevalue.Unmarshal(r.item[col], &v); err != nil {
		r.fail("column %q: %w", col, err)
		return nil
	}
	return &v
}

// ReadEnum decodes a required enum column, failing on values outside the
// enum.
func ReadEnum[T ~string](r *AttributeReader, col string, valid func(T) bool) T {
	v := ReadRequired[T](r, col)
	if r.Has(col) && !valid(v) {
		r.fail("column %q: %q is not a known value", col, v)
	}
	return v
}

func ReadOptionalEnum[T ~string](r *AttributeReader, col string, valid func(T) bool) *T {
	v := ReadOptional[T](r, col)
	if v != nil && !valid(*v) {
		r.fail("column %q: %q is not a known value", col, *v)
	}
	return v
}

func (r *AttributeReader) String(col string) string {
	return ReadRequired[string](r, col)
}

func (r *AttributeReader) Int(col string) int {
	return ReadRequired[int](r, col)
}

func (r *AttributeReader) Float(col string) float64 {
	return ReadRequired[float64](r, col)
}

func (r *AttributeReader) Bool(col string) bool {
	return ReadRequired[bool](r, col)
}

// Time decodes an epoch milliseconds column written by AttributeWriter.Time.
func (r *AttributeReader) Time(col string) time.Time {
	return time.UnixMilli(ReadRequired[int64](r, col)).UTC()
}

func (r *AttributeReader) OptionalTime(col string) *time.Time {
	ms := ReadOptional[int64](r, col)
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func (r *AttributeReader) EpochSeconds(col string) time.Time {
	return time.Unix(ReadRequired[int64](r, col), 0).UTC()
}

func (r *AttributeReader) OptionalEpochSeconds(col string) *time.Time {
	s := ReadOptional[int64](r, col)
	if s == nil {
		return nil
	}
	t := time.Unix(*s, 0).UTC()
	return &t
}

// Key returns the string value of a key attribute.
func (r *AttributeReader) Key(attr string) string {
	return ReadRequired[string](r, attr)
}

// Err returns a DataIntegrity error describing every decoding problem, or nil.
func (r *AttributeReader) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return newError(KindDataIntegrity, "unmarshall", r.model, errors.Join(r.errs...))
}

// NonNil stores a required list as an empty list instead of NULL.
func NonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
