package ddbsdk

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"golang.org/x/exp/constraints"
)

// UpdateOp is one clause of an UpdateItem expression.
type UpdateOp interface {
	Field() string
	Apply(expression.UpdateBuilder) expression.UpdateBuilder
	IsIdempotent() bool
}

type number interface {
	constraints.Integer | constraints.Float
}

// Sets the value of a field regardless of any existing value
type setFieldOp[T any] struct {
	field string
	value T
}

var _ UpdateOp = setFieldOp[string]{}

func SetFieldOp[T any](field string, value T) setFieldOp[T] {
	return setFieldOp[T]{
		field: field,
		value: value,
	}
}

func (o setFieldOp[T]) Field() string {
	return o.field
}

func (o setFieldOp[T]) IsIdempotent() bool {
	return true
}

func (o setFieldOp[T]) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	return expr.Set(expression.Name(o.field), expression.Value(o.value))
}

// Sets the value of a field only when the stored item has none.
type setIfNotExistsOp[T any] struct {
	field string
	value T
}

func SetIfNotExistsOp[T any](field string, value T) setIfNotExistsOp[T] {
	return setIfNotExistsOp[T]{
		field: field,
		value: value,
	}
}

func (o setIfNotExistsOp[T]) Field() string {
	return o.field
}

func (o setIfNotExistsOp[T]) IsIdempotent() bool {
	return true
}

func (o setIfNotExistsOp[T]) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	name := expression.Name(o.field)
	return expr.Set(name, expression.IfNotExists(name, expression.Value(o.value)))
}

type removeFieldOp struct {
	field string
}

func RemoveFieldOp(field string) removeFieldOp {
	return removeFieldOp{
		field: field,
	}
}

func (o removeFieldOp) IsIdempotent() bool {
	return true
}

func (o removeFieldOp) Field() string {
	return o.field
}

func (o removeFieldOp) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	return expr.Remove(expression.Name(o.field))
}

// Adds to a numeric field atomically. A missing field counts as zero, which
// is what makes ADD _v 1 safe for blind writes.
type addNumberOp[T number] struct {
	field string
	value T
}

func AddNumberOp[T number](field string, value T) addNumberOp[T] {
	return addNumberOp[T]{
		field: field,
		value: value,
	}
}

func (addNumberOp[T]) IsIdempotent() bool {
	return false
}

func (o addNumberOp[T]) Field() string {
	return o.field
}

func (o addNumberOp[T]) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	return expr.Add(expression.Name(o.field), expression.Value(o.value))
}

// setAll returns one set op per attribute, ordered by name so the rendered
// expression is stable.
func setAll(attrs map[string]any) []UpdateOp {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	ops := make([]UpdateOp, 0, len(names))
	for _, name := range names {
		ops = append(ops, SetFieldOp(name, attrs[name]))
	}
	return ops
}

func applyOps(ops []UpdateOp) expression.UpdateBuilder {
	var u expression.UpdateBuilder
	for _, op := range ops {
		u = op.Apply(u)
	}
	return u
}
