package expr

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Names and Values are the ExpressionAttributeNames and
// ExpressionAttributeValues of a request.
type Names = map[string]string
type Values = map[string]types.AttributeValue

type Item = map[string]types.AttributeValue

// env resolves placeholders and paths during evaluation.
type env struct {
	names  Names
	values Values
	item   Item
}

func (e *env) resolveName(ref string) (string, error) {
	if ref[0] != '#' {
		return ref, nil
	}
	name, ok := e.names[ref]
	if !ok {
		return "", fmt.Errorf("expression attribute name %s is not defined", ref)
	}
	return name, nil
}

func (e *env) resolveValue(ref string) (types.AttributeValue, error) {
	v, ok := e.values[ref]
	if !ok {
		return nil, fmt.Errorf("expression attribute value %s is not defined", ref)
	}
	return v, nil
}

func parseNumber(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return r, nil
}

func formatNumber(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(38)
	s = trimRight(s, '0')
	return trimRight(s, '.')
}

func trimRight(s string, c byte) string {
	for len(s) > 0 && s[len(s)-1] == c {
		s = s[:len(s)-1]
	}
	return s
}

// compare orders two scalar values of the same type. ok is false when the
// values are not comparable.
func compare(a, b types.AttributeValue) (cmp int, ok bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, isS := b.(*types.AttributeValueMemberS)
		if !isS {
			return 0, false
		}
		switch {
		case av.Value < bv.Value:
			return -1, true
		case av.Value > bv.Value:
			return 1, true
		}
		return 0, true
	case *types.AttributeValueMemberN:
		bv, isN := b.(*types.AttributeValueMemberN)
		if !isN {
			return 0, false
		}
		an, err := parseNumber(av.Value)
		if err != nil {
			return 0, false
		}
		bn, err := parseNumber(bv.Value)
		if err != nil {
			return 0, false
		}
		return an.Cmp(bn), true
	case *types.AttributeValueMemberB:
		bv, isB := b.(*types.AttributeValueMemberB)
		if !isB {
			return 0, false
		}
		return bytes.Compare(av.Value, bv.Value), true
	}
	return 0, false
}

// equal is deep equality with numeric comparison for N values.
func equal(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return false
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func add(a, b types.AttributeValue) (types.AttributeValue, error) {
	return arith(a, b, (*big.Rat).Add)
}

func sub(a, b types.AttributeValue) (types.AttributeValue, error) {
	return arith(a, b, (*big.Rat).Sub)
}

func arith(a, b types.AttributeValue, op func(z, x, y *big.Rat) *big.Rat) (types.AttributeValue, error) {
	an, ok := a.(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("arithmetic operand is %T, want number", a)
	}
	bn, ok := b.(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("arithmetic operand is %T, want number", b)
	}
	x, err := parseNumber(an.Value)
	if err != nil {
		return nil, err
	}
	y, err := parseNumber(bn.Value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: formatNumber(op(new(big.Rat), x, y))}, nil
}

func typeName(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberBS:
		return "BS"
	case *types.AttributeValueMemberM:
		return "M"
	case *types.AttributeValueMemberL:
		return "L"
	}
	return ""
}

func size(av types.AttributeValue) (int, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value), true
	case *types.AttributeValueMemberB:
		return len(v.Value), true
	case *types.AttributeValueMemberSS:
		return len(v.Value), true
	case *types.AttributeValueMemberNS:
		return len(v.Value), true
	case *types.AttributeValueMemberBS:
		return len(v.Value), true
	case *types.AttributeValueMemberL:
		return len(v.Value), true
	case *types.AttributeValueMemberM:
		return len(v.Value), true
	}
	return 0, false
}
