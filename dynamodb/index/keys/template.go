// Package keys turns the field lists of key directives into key templates: an
// ordered list of literal and placeholder tokens bound to one physical
// attribute.
//
// A template only describes the key. Evaluating it (Render, RenderPrefix) and
// printing it for an artifact (GoPrinter, PatternPrinter) are separate, so the
// ordering, separator and prefix rules live in one place.
//
//	t, _ := keys.Derive("pk", "SUB", []string{"externalId", "vendor"}, model.Field)
//	t.Render(keys.Values{Fields: map[string]any{"externalId": "e1", "vendor": "GITHUB"}})
//	// SUB#e1#GITHUB
package keys

import (
	"fmt"
	"strconv"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/acksell/ddbsdl/dynamodb/schema"
)

type TokenKind int

const (
	// TokenField is replaced by the value of a model field.
	TokenField TokenKind = iota
	// TokenNow is a createdAt or updatedAt field, bound to the write time.
	TokenNow
)

// Token is one placeholder of a template.
type Token struct {
	Kind  TokenKind
	Field schema.Field
}

// Template is the key of one physical attribute.
type Template struct {
	Attr   string
	Prefix string
	Tokens []Token
	// Pad keeps empty segments in place instead of dropping them.
	Pad bool
}

// Lookup resolves a logical field name against a model.
type Lookup func(name string) (schema.Field, bool)

// Derive builds the template of attr from a literal prefix and an ordered
// field list. The order of fields is the concatenation order of the key.
func Derive(attr, prefix string, fields []string, lookup Lookup) (Template, error) {
	if len(fields) == 0 && prefix == "" {
		return Template{}, fmt.Errorf("key %s: no fields and no prefix", attr)
	}
	t := Template{Attr: attr, Prefix: prefix}
	for _, name := range fields {
		f, ok := lookup(name)
		if !ok {
			return Template{}, fmt.Errorf("key %s: unknown field %q", attr, name)
		}
		if f.Type.List {
			return Template{}, fmt.Errorf("key %s: field %q is a list", attr, name)
		}
		kind := TokenField
		if f.Role == schema.RoleCreatedAt || f.Role == schema.RoleUpdatedAt {
			kind = TokenNow
		}
		t.Tokens = append(t.Tokens, Token{Kind: kind, Field: f})
	}
	return t, nil
}

// Fields returns the logical field names of the template, in key order.
func (t Template) Fields() []string {
	names := make([]string, len(t.Tokens))
	for i, tok := range t.Tokens {
		names[i] = tok.Field.Name
	}
	return names
}

// Uses reports whether any token refers to the named field.
func (t Template) Uses(field string) bool {
	for _, tok := range t.Tokens {
		if tok.Field.Name == field {
			return true
		}
	}
	return false
}

// UsesRole reports whether any token is bound to a field of the given role.
func (t Template) UsesRole(role schema.FieldRole) bool {
	for _, tok := range t.Tokens {
		if tok.Field.Role == role {
			return true
		}
	}
	return false
}

// IsConstant reports whether the template renders the same value for every
// record.
func (t Template) IsConstant() bool {
	return len(t.Tokens) == 0
}

// Values are the inputs of one evaluation. Fields holds plain Go values keyed
// by logical field name; nil or missing values render as empty segments.
type Values struct {
	Fields map[string]any
	Now    time.Time
}

// Render evaluates the template. The same values always produce the same key.
func (t Template) Render(v Values) (string, error) {
	segments, err := t.segments(v, len(t.Tokens))
	if err != nil {
		return "", err
	}
	return t.join(segments...), nil
}

// RenderPrefix builds the sort key condition of a query binding the first n
// fields. Fields after n are unbound.
func (t Template) RenderPrefix(v Values, n int, op ddbsdk.Operator) (*ddbsdk.SortKeyCondition, error) {
	if n < 0 || n > len(t.Tokens) {
		return nil, fmt.Errorf("key %s: cannot bind %d of %d fields", t.Attr, n, len(t.Tokens))
	}
	segments, err := t.segments(v, n)
	if err != nil {
		return nil, err
	}
	bound := make([]*string, len(t.Tokens))
	for i := range segments {
		bound[i] = &segments[i]
	}
	return ddbsdk.NewSortKeyCondition(t.Prefix, len(t.Tokens), op, t.Pad, bound...)
}

func (t Template) join(segments ...string) string {
	if t.Pad {
		return ddbsdk.JoinKeyPadded(t.Prefix, segments...)
	}
	return ddbsdk.JoinKey(t.Prefix, segments...)
}

func (t Template) segments(v Values, n int) ([]string, error) {
	out := make([]string, 0, n)
	for _, tok := range t.Tokens[:n] {
		if tok.Kind == TokenNow {
			out = append(out, ddbsdk.FormatEpochMillis(v.Now))
			continue
		}
		s, err := FormatValue(v.Fields[tok.Field.Name])
		if err != nil {
			return nil, fmt.Errorf("key %s: field %q: %w", t.Attr, tok.Field.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// FormatValue is the segment form of a field value: timestamps as epoch
// milliseconds, everything else in its natural string form.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return ddbsdk.FormatFloat(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return ddbsdk.FormatEpochMillis(x), nil
	case *string:
		if x == nil {
			return "", nil
		}
		return *x, nil
	case *time.Time:
		if x == nil {
			return "", nil
		}
		return ddbsdk.FormatEpochMillis(*x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("cannot use %T in a key", v)
}
