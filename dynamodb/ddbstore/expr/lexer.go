// Package expr parses and evaluates the DynamoDB expression languages the
// store supports: condition and filter expressions, update expressions and
// key condition expressions.
//
// Attribute paths are top level names only. Nested document paths are
// rejected at parse time.
package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNameRef  // #name
	tokValueRef // :value
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokLBracket
	tokRBracket
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokPlus
	tokMinus
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q at %d", t.text, t.pos)
}

// isKeyword matches identifiers case-insensitively, as DynamoDB does.
func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '#' || c == ':':
			start := i
			i++
			for i < len(input) && isIdentChar(rune(input[i])) {
				i++
			}
			if i == start+1 {
				return nil, fmt.Errorf("empty placeholder at %d", start)
			}
			kind := tokNameRef
			if c == ':' {
				kind = tokValueRef
			}
			toks = append(toks, token{kind: kind, text: input[start:i], pos: start})
		case isIdentChar(c):
			start := i
			for i < len(input) && isIdentChar(rune(input[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], pos: start})
		default:
			kind, width, err := lexOperator(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: kind, text: input[i : i+width], pos: i})
			i += width
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func lexOperator(input string, i int) (tokenKind, int, error) {
	two := ""
	if i+1 < len(input) {
		two = input[i : i+2]
	}
	switch two {
	case "<>":
		return tokNe, 2, nil
	case "<=":
		return tokLe, 2, nil
	case ">=":
		return tokGe, 2, nil
	}
	switch input[i] {
	case '(':
		return tokLParen, 1, nil
	case ')':
		return tokRParen, 1, nil
	case ',':
		return tokComma, 1, nil
	case '.':
		return tokDot, 1, nil
	case '[':
		return tokLBracket, 1, nil
	case ']':
		return tokRBracket, 1, nil
	case '=':
		return tokEq, 1, nil
	case '<':
		return tokLt, 1, nil
	case '>':
		return tokGt, 1, nil
	case '+':
		return tokPlus, 1, nil
	case '-':
		return tokMinus, 1, nil
	}
	return 0, 0, fmt.Errorf("unexpected character %q at %d", input[i], i)
}

func isIdentChar(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// parser is a recursive descent parser over the token stream.
type parser struct {
	toks []token
	pos  int
}

func newParser(input string) (*parser, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("expected %s, got %s", what, t)
	}
	return t, nil
}

func (p *parser) done() error {
	if t := p.peek(); t.kind != tokEOF {
		return fmt.Errorf("unexpected %s", t)
	}
	return nil
}
