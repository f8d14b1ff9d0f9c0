package expr

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SortOp is the operator of a sort key condition.
type SortOp int

const (
	SortEqual SortOp = iota
	SortLess
	SortLessOrEqual
	SortGreater
	SortGreaterOrEqual
	SortBetween
	SortBeginsWith
)

// KeyCondition is a resolved key condition expression: an exact partition
// value and an optional sort key constraint.
type KeyCondition struct {
	PartitionValue types.AttributeValue
	Sort           *SortCondition
}

type SortCondition struct {
	Op     SortOp
	Values []types.AttributeValue
}

// Match reports whether a sort key value satisfies the condition.
func (c *SortCondition) Match(v types.AttributeValue) bool {
	if c == nil {
		return true
	}
	switch c.Op {
	case SortEqual:
		return compareValues(cmpEq, v, c.Values[0])
	case SortLess:
		return compareValues(cmpLt, v, c.Values[0])
	case SortLessOrEqual:
		return compareValues(cmpLe, v, c.Values[0])
	case SortGreater:
		return compareValues(cmpGt, v, c.Values[0])
	case SortGreaterOrEqual:
		return compareValues(cmpGe, v, c.Values[0])
	case SortBetween:
		return compareValues(cmpGe, v, c.Values[0]) && compareValues(cmpLe, v, c.Values[1])
	case SortBeginsWith:
		return beginsWith(v, c.Values[0])
	}
	return false
}

// ParseKeyCondition parses a key condition expression against the key
// attributes of the queried table or index. sortAttr is empty for indexes
// without a sort key.
func ParseKeyCondition(input string, names Names, values Values, partitionAttr, sortAttr string) (*KeyCondition, error) {
	c, err := ParseCondition(input)
	if err != nil {
		return nil, fmt.Errorf("parse key condition: %w", err)
	}
	var terms []Condition
	switch t := c.(type) {
	case andCond:
		terms = []Condition{t.left, t.right}
		if _, nested := t.left.(andCond); nested {
			return nil, fmt.Errorf("key condition: at most two conditions are allowed")
		}
	default:
		terms = []Condition{c}
	}

	e := &env{names: names, values: values}
	kc := &KeyCondition{}
	for _, term := range terms {
		attr, sc, err := keyTerm(e, term)
		if err != nil {
			return nil, fmt.Errorf("key condition: %w", err)
		}
		switch {
		case attr == partitionAttr:
			if sc.Op != SortEqual {
				return nil, fmt.Errorf("key condition: partition key %q must use equality", attr)
			}
			if kc.PartitionValue != nil {
				return nil, fmt.Errorf("key condition: partition key %q constrained twice", attr)
			}
			kc.PartitionValue = sc.Values[0]
		case sortAttr != "" && attr == sortAttr:
			if kc.Sort != nil {
				return nil, fmt.Errorf("key condition: sort key %q constrained twice", attr)
			}
			kc.Sort = sc
		default:
			return nil, fmt.Errorf("key condition: %q is not a key attribute", attr)
		}
	}
	if kc.PartitionValue == nil {
		return nil, fmt.Errorf("key condition: partition key %q is required", partitionAttr)
	}
	return kc, nil
}

func keyTerm(e *env, c Condition) (string, *SortCondition, error) {
	switch t := c.(type) {
	case compareCond:
		path, ok := t.left.(pathOperand)
		if !ok {
			return "", nil, fmt.Errorf("left side must be a key attribute")
		}
		op, ok := map[comparator]SortOp{
			cmpEq: SortEqual,
			cmpLt: SortLess,
			cmpLe: SortLessOrEqual,
			cmpGt: SortGreater,
			cmpGe: SortGreaterOrEqual,
		}[t.op]
		if !ok {
			return "", nil, fmt.Errorf("operator <> is not allowed")
		}
		return resolveTerm(e, path, op, t.right)
	case betweenCond:
		path, ok := t.subject.(pathOperand)
		if !ok {
			return "", nil, fmt.Errorf("BETWEEN needs a key attribute")
		}
		return resolveTerm(e, path, SortBetween, t.low, t.high)
	case funcCond:
		if t.name != "begins_with" {
			return "", nil, fmt.Errorf("function %s is not allowed", t.name)
		}
		return resolveTerm(e, t.args[0].(pathOperand), SortBeginsWith, t.args[1])
	}
	return "", nil, fmt.Errorf("unsupported key condition term %T", c)
}

func resolveTerm(e *env, path pathOperand, op SortOp, operands ...operand) (string, *SortCondition, error) {
	attr, err := e.resolveName(path.ref)
	if err != nil {
		return "", nil, err
	}
	sc := &SortCondition{Op: op}
	for _, o := range operands {
		v, ok := o.(valueOperand)
		if !ok {
			return "", nil, fmt.Errorf("key attribute %q must be compared with a value", attr)
		}
		av, err := e.resolveValue(v.ref)
		if err != nil {
			return "", nil, err
		}
		sc.Values = append(sc.Values, av)
	}
	return attr, sc, nil
}
