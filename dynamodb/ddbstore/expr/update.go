package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Update is a parsed update expression.
type Update struct {
	sets    []setAction
	removes []pathOperand
	adds    []addAction
	deletes []addAction
}

type setAction struct {
	path  pathOperand
	value setValue
}

type addAction struct {
	path  pathOperand
	value valueOperand
}

// setValue is the right hand side of a SET action.
type setValue interface {
	operand
}

type ifNotExists struct {
	path     pathOperand
	fallback setValue
}

func (f ifNotExists) value(e *env) (types.AttributeValue, error) {
	v, err := f.path.value(e)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return v, nil
	}
	return f.fallback.value(e)
}

type listAppend struct {
	left, right setValue
}

func (f listAppend) value(e *env) (types.AttributeValue, error) {
	l, err := f.left.value(e)
	if err != nil {
		return nil, err
	}
	r, err := f.right.value(e)
	if err != nil {
		return nil, err
	}
	ll, ok := l.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("list_append operand is not a list")
	}
	rl, ok := r.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("list_append operand is not a list")
	}
	out := append(append([]types.AttributeValue{}, ll.Value...), rl.Value...)
	return &types.AttributeValueMemberL{Value: out}, nil
}

type arithValue struct {
	plus        bool
	left, right setValue
}

func (a arithValue) value(e *env) (types.AttributeValue, error) {
	l, err := a.left.value(e)
	if err != nil {
		return nil, err
	}
	r, err := a.right.value(e)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, fmt.Errorf("arithmetic on a missing attribute")
	}
	if a.plus {
		return add(l, r)
	}
	return sub(l, r)
}

// ParseUpdate parses an update expression. Clauses may appear in any order,
// each at most once.
func ParseUpdate(input string) (*Update, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, fmt.Errorf("parse update: %w", err)
	}
	u := &Update{}
	seen := map[string]bool{}
	for p.peek().kind != tokEOF {
		t := p.next()
		clause := strings.ToUpper(t.text)
		if t.kind != tokIdent || seen[clause] {
			return nil, fmt.Errorf("parse update: unexpected %s", t)
		}
		seen[clause] = true
		switch clause {
		case "SET":
			err = p.parseList(func() error {
				path, err := p.parsePath()
				if err != nil {
					return err
				}
				if _, err := p.expect(tokEq, "'='"); err != nil {
					return err
				}
				v, err := p.parseSetValue()
				if err != nil {
					return err
				}
				u.sets = append(u.sets, setAction{path, v})
				return nil
			})
		case "REMOVE":
			err = p.parseList(func() error {
				path, err := p.parsePath()
				u.removes = append(u.removes, path)
				return err
			})
		case "ADD", "DELETE":
			err = p.parseList(func() error {
				path, err := p.parsePath()
				if err != nil {
					return err
				}
				v, err := p.expect(tokValueRef, "value placeholder")
				if err != nil {
					return err
				}
				a := addAction{path, valueOperand{ref: v.text}}
				if clause == "ADD" {
					u.adds = append(u.adds, a)
				} else {
					u.deletes = append(u.deletes, a)
				}
				return nil
			})
		default:
			return nil, fmt.Errorf("parse update: unknown clause %s", t)
		}
		if err != nil {
			return nil, fmt.Errorf("parse update: %w", err)
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("parse update: empty expression")
	}
	return u, nil
}

func (p *parser) parseList(item func() error) error {
	for {
		if err := item(); err != nil {
			return err
		}
		if p.peek().kind != tokComma {
			return nil
		}
		p.next()
	}
}

func (p *parser) parseSetValue() (setValue, error) {
	left, err := p.parseSetOperand()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokPlus, tokMinus:
		plus := p.next().kind == tokPlus
		right, err := p.parseSetOperand()
		if err != nil {
			return nil, err
		}
		return arithValue{plus: plus, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseSetOperand() (setValue, error) {
	t := p.peek()
	if t.kind == tokIdent && p.peekAt(1).kind == tokLParen {
		switch strings.ToLower(t.text) {
		case "if_not_exists":
			p.next()
			p.next()
			path, err := p.parsePath()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokComma, "','"); err != nil {
				return nil, err
			}
			fallback, err := p.parseSetValue()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return ifNotExists{path, fallback}, nil
		case "list_append":
			p.next()
			p.next()
			left, err := p.parseSetValue()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokComma, "','"); err != nil {
				return nil, err
			}
			right, err := p.parseSetValue()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return listAppend{left, right}, nil
		}
	}
	if t.kind == tokValueRef {
		p.next()
		return valueOperand{ref: t.text}, nil
	}
	return p.parsePath()
}

// ApplyResult is the outcome of applying an update to an item.
type ApplyResult struct {
	Item Item
	// Updated names the attributes the update touched.
	Updated []string
}

// Apply evaluates the update against item and returns the new item. Every
// right hand side is evaluated against the original item, as DynamoDB does.
// The input item is not modified.
func (u *Update) Apply(names Names, values Values, item Item) (*ApplyResult, error) {
	e := &env{names: names, values: values, item: item}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	touched := map[string]bool{}

	for _, s := range u.sets {
		name, err := e.resolveName(s.path.ref)
		if err != nil {
			return nil, err
		}
		v, err := s.value.value(e)
		if err != nil {
			return nil, fmt.Errorf("SET %s: %w", name, err)
		}
		out[name] = v
		touched[name] = true
	}
	for _, r := range u.removes {
		name, err := e.resolveName(r.ref)
		if err != nil {
			return nil, err
		}
		delete(out, name)
		touched[name] = true
	}
	for _, a := range u.adds {
		name, err := e.resolveName(a.path.ref)
		if err != nil {
			return nil, err
		}
		v, err := a.value.value(e)
		if err != nil {
			return nil, err
		}
		merged, err := addValue(item[name], v)
		if err != nil {
			return nil, fmt.Errorf("ADD %s: %w", name, err)
		}
		out[name] = merged
		touched[name] = true
	}
	for _, d := range u.deletes {
		name, err := e.resolveName(d.path.ref)
		if err != nil {
			return nil, err
		}
		v, err := d.value.value(e)
		if err != nil {
			return nil, err
		}
		remaining, err := deleteFromSet(item[name], v)
		if err != nil {
			return nil, fmt.Errorf("DELETE %s: %w", name, err)
		}
		if remaining == nil {
			delete(out, name)
		} else {
			out[name] = remaining
		}
		touched[name] = true
	}

	updated := make([]string, 0, len(touched))
	for name := range touched {
		updated = append(updated, name)
	}
	sort.Strings(updated)
	return &ApplyResult{Item: out, Updated: updated}, nil
}

// addValue implements ADD: numeric addition, with a missing attribute
// counting as zero, or set union.
func addValue(current, v types.AttributeValue) (types.AttributeValue, error) {
	switch inc := v.(type) {
	case *types.AttributeValueMemberN:
		if current == nil {
			return inc, nil
		}
		return add(current, inc)
	case *types.AttributeValueMemberSS:
		if current == nil {
			return inc, nil
		}
		cur, ok := current.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, fmt.Errorf("cannot add string set to %s", typeName(current))
		}
		return &types.AttributeValueMemberSS{Value: union(cur.Value, inc.Value)}, nil
	case *types.AttributeValueMemberNS:
		if current == nil {
			return inc, nil
		}
		cur, ok := current.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, fmt.Errorf("cannot add number set to %s", typeName(current))
		}
		return &types.AttributeValueMemberNS{Value: union(cur.Value, inc.Value)}, nil
	}
	return nil, fmt.Errorf("ADD supports numbers and sets, got %s", typeName(v))
}

func deleteFromSet(current, v types.AttributeValue) (types.AttributeValue, error) {
	if current == nil {
		return nil, nil
	}
	switch del := v.(type) {
	case *types.AttributeValueMemberSS:
		cur, ok := current.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, fmt.Errorf("cannot delete string set from %s", typeName(current))
		}
		rest := difference(cur.Value, del.Value)
		if len(rest) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberSS{Value: rest}, nil
	case *types.AttributeValueMemberNS:
		cur, ok := current.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, fmt.Errorf("cannot delete number set from %s", typeName(current))
		}
		rest := difference(cur.Value, del.Value)
		if len(rest) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberNS{Value: rest}, nil
	}
	return nil, fmt.Errorf("DELETE supports sets, got %s", typeName(v))
}

func union(a, b []string) []string {
	out := append([]string{}, a...)
	for _, x := range b {
		if !containsString(out, x) {
			out = append(out, x)
		}
	}
	return out
}

func difference(a, b []string) []string {
	var out []string
	for _, x := range a {
		if !containsString(b, x) {
			out = append(out, x)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
