package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a parsed condition or filter expression.
type Condition interface {
	eval(*env) (bool, error)
}

// operand evaluates to an attribute value, or nil when a path is absent.
type operand interface {
	value(*env) (types.AttributeValue, error)
}

type pathOperand struct {
	ref string // #placeholder or literal attribute name
}

func (p pathOperand) value(e *env) (types.AttributeValue, error) {
	name, err := e.resolveName(p.ref)
	if err != nil {
		return nil, err
	}
	return e.item[name], nil
}

type valueOperand struct {
	ref string
}

func (v valueOperand) value(e *env) (types.AttributeValue, error) {
	return e.resolveValue(v.ref)
}

type sizeOperand struct {
	path pathOperand
}

func (s sizeOperand) value(e *env) (types.AttributeValue, error) {
	av, err := s.path.value(e)
	if err != nil || av == nil {
		return nil, err
	}
	n, ok := size(av)
	if !ok {
		return nil, fmt.Errorf("size() is not defined for %s", typeName(av))
	}
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}, nil
}

type andCond struct{ left, right Condition }
type orCond struct{ left, right Condition }
type notCond struct{ inner Condition }

func (c andCond) eval(e *env) (bool, error) {
	l, err := c.left.eval(e)
	if err != nil || !l {
		return false, err
	}
	return c.right.eval(e)
}

func (c orCond) eval(e *env) (bool, error) {
	l, err := c.left.eval(e)
	if err != nil || l {
		return l, err
	}
	return c.right.eval(e)
}

func (c notCond) eval(e *env) (bool, error) {
	v, err := c.inner.eval(e)
	return !v, err
}

type comparator int

const (
	cmpEq comparator = iota
	cmpNe
	cmpLt
	cmpLe
	cmpGt
	cmpGe
)

type compareCond struct {
	op          comparator
	left, right operand
}

func (c compareCond) eval(e *env) (bool, error) {
	l, err := c.left.value(e)
	if err != nil {
		return false, err
	}
	r, err := c.right.value(e)
	if err != nil {
		return false, err
	}
	return compareValues(c.op, l, r), nil
}

func compareValues(op comparator, l, r types.AttributeValue) bool {
	if l == nil || r == nil {
		return op == cmpNe && (l != nil || r != nil)
	}
	switch op {
	case cmpEq:
		return equal(l, r)
	case cmpNe:
		return !equal(l, r)
	}
	c, ok := compare(l, r)
	if !ok {
		return false
	}
	switch op {
	case cmpLt:
		return c < 0
	case cmpLe:
		return c <= 0
	case cmpGt:
		return c > 0
	default:
		return c >= 0
	}
}

type betweenCond struct {
	subject, low, high operand
}

func (c betweenCond) eval(e *env) (bool, error) {
	v, err := c.subject.value(e)
	if err != nil {
		return false, err
	}
	lo, err := c.low.value(e)
	if err != nil {
		return false, err
	}
	hi, err := c.high.value(e)
	if err != nil {
		return false, err
	}
	return compareValues(cmpGe, v, lo) && compareValues(cmpLe, v, hi), nil
}

type inCond struct {
	subject operand
	list    []operand
}

func (c inCond) eval(e *env) (bool, error) {
	v, err := c.subject.value(e)
	if err != nil || v == nil {
		return false, err
	}
	for _, o := range c.list {
		candidate, err := o.value(e)
		if err != nil {
			return false, err
		}
		if equal(v, candidate) {
			return true, nil
		}
	}
	return false, nil
}

type funcCond struct {
	name string
	args []operand
}

func (c funcCond) eval(e *env) (bool, error) {
	vals := make([]types.AttributeValue, len(c.args))
	for i, a := range c.args {
		v, err := a.value(e)
		if err != nil {
			return false, err
		}
		vals[i] = v
	}
	switch c.name {
	case "attribute_exists":
		return vals[0] != nil, nil
	case "attribute_not_exists":
		return vals[0] == nil, nil
	case "attribute_type":
		want, ok := vals[1].(*types.AttributeValueMemberS)
		if !ok {
			return false, fmt.Errorf("attribute_type expects a string type name")
		}
		return vals[0] != nil && typeName(vals[0]) == want.Value, nil
	case "begins_with":
		return beginsWith(vals[0], vals[1]), nil
	case "contains":
		return contains(vals[0], vals[1]), nil
	}
	return false, fmt.Errorf("unknown function %s", c.name)
}

func beginsWith(v, prefix types.AttributeValue) bool {
	switch s := v.(type) {
	case *types.AttributeValueMemberS:
		p, ok := prefix.(*types.AttributeValueMemberS)
		return ok && strings.HasPrefix(s.Value, p.Value)
	case *types.AttributeValueMemberB:
		p, ok := prefix.(*types.AttributeValueMemberB)
		return ok && strings.HasPrefix(string(s.Value), string(p.Value))
	}
	return false
}

func contains(v, elem types.AttributeValue) bool {
	switch s := v.(type) {
	case *types.AttributeValueMemberS:
		sub, ok := elem.(*types.AttributeValueMemberS)
		return ok && strings.Contains(s.Value, sub.Value)
	case *types.AttributeValueMemberSS:
		e, ok := elem.(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		for _, x := range s.Value {
			if x == e.Value {
				return true
			}
		}
	case *types.AttributeValueMemberNS:
		for _, x := range s.Value {
			if equal(&types.AttributeValueMemberN{Value: x}, elem) {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, x := range s.Value {
			if equal(x, elem) {
				return true
			}
		}
	}
	return false
}

// function arity, counting the leading path argument.
var conditionFuncs = map[string]int{
	"attribute_exists":     1,
	"attribute_not_exists": 1,
	"attribute_type":       2,
	"begins_with":          2,
	"contains":             2,
}

// ParseCondition parses a condition or filter expression.
func ParseCondition(input string) (Condition, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, fmt.Errorf("parse condition: %w", err)
	}
	c, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse condition: %w", err)
	}
	if err := p.done(); err != nil {
		return nil, fmt.Errorf("parse condition: %w", err)
	}
	return c, nil
}

// EvalCondition evaluates a condition against an item. A nil item is the
// state of a key with no stored record.
func EvalCondition(c Condition, names Names, values Values, item Item) (bool, error) {
	return c.eval(&env{names: names, values: values, item: item})
}

// Eval parses and evaluates a condition in one step.
func Eval(input string, names Names, values Values, item Item) (bool, error) {
	c, err := ParseCondition(input)
	if err != nil {
		return false, err
	}
	return EvalCondition(c, names, values, item)
}

func (p *parser) parseOr() (Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().isKeyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orCond{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().isKeyword("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andCond{left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (Condition, error) {
	if p.peek().isKeyword("NOT") {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notCond{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Condition, error) {
	t := p.peek()
	if t.kind == tokLParen {
		p.next()
		c, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return c, nil
	}
	if t.kind == tokIdent && p.peekAt(1).kind == tokLParen {
		name := strings.ToLower(t.text)
		if arity, ok := conditionFuncs[name]; ok {
			return p.parseFunc(name, arity)
		}
	}
	return p.parseComparison()
}

func (p *parser) parseFunc(name string, arity int) (Condition, error) {
	p.next() // name
	p.next() // (
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	args := []operand{path}
	for len(args) < arity {
		if _, err := p.expect(tokComma, "','"); err != nil {
			return nil, err
		}
		o, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		args = append(args, o)
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return funcCond{name: name, args: args}, nil
}

func (p *parser) parseComparison() (Condition, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t := p.next()
	switch {
	case t.isKeyword("BETWEEN"):
		low, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if and := p.next(); !and.isKeyword("AND") {
			return nil, fmt.Errorf("expected AND in BETWEEN, got %s", and)
		}
		high, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return betweenCond{left, low, high}, nil
	case t.isKeyword("IN"):
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		var list []operand
		for {
			o, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			list = append(list, o)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inCond{left, list}, nil
	}
	op, ok := comparators[t.kind]
	if !ok {
		return nil, fmt.Errorf("expected comparator, got %s", t)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareCond{op: op, left: left, right: right}, nil
}

var comparators = map[tokenKind]comparator{
	tokEq: cmpEq,
	tokNe: cmpNe,
	tokLt: cmpLt,
	tokLe: cmpLe,
	tokGt: cmpGt,
	tokGe: cmpGe,
}

func (p *parser) parseOperand() (operand, error) {
	t := p.peek()
	switch {
	case t.kind == tokValueRef:
		p.next()
		return valueOperand{ref: t.text}, nil
	case t.isKeyword("size") && p.peekAt(1).kind == tokLParen:
		p.next()
		p.next()
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return sizeOperand{path}, nil
	}
	return p.parsePath()
}

func (p *parser) parsePath() (pathOperand, error) {
	t := p.next()
	if t.kind != tokNameRef && t.kind != tokIdent {
		return pathOperand{}, fmt.Errorf("expected attribute name, got %s", t)
	}
	if k := p.peek().kind; k == tokDot || k == tokLBracket {
		return pathOperand{}, fmt.Errorf("nested attribute paths are not supported (at %d)", p.peek().pos)
	}
	return pathOperand{ref: t.text}, nil
}
