package keys

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/acksell/ddbsdl/dynamodb/schema"
)

// GoPrinter prints templates as Go expressions for generated code. The
// expressions reference the runtime package as "ddbsdk".
type GoPrinter struct {
	// Value returns the Go expression holding a field's value, such as
	// "in.ExternalID". Nullable fields are expected to be pointers.
	Value func(f schema.Field) string
	// Now is the expression of the write time. When empty, createdAt and
	// updatedAt segments read their field like any other timestamp.
	Now string
}

// Key prints a string expression evaluating the template.
func (p GoPrinter) Key(t Template) string {
	if t.IsConstant() {
		return strconv.Quote(t.Prefix)
	}
	args := []string{strconv.Quote(t.Prefix)}
	for _, tok := range t.Tokens {
		args = append(args, p.segment(tok))
	}
	join := "ddbsdk.JoinKey"
	if t.Pad {
		join = "ddbsdk.JoinKeyPadded"
	}
	return join + "(" + strings.Join(args, ", ") + ")"
}

func (p GoPrinter) segment(tok Token) string {
	if tok.Kind == TokenNow && p.Now != "" {
		return "ddbsdk.FormatEpochMillis(" + p.Now + ")"
	}
	v := p.Value(tok.Field)
	format := FormatFunc(tok.Field)
	if tok.Field.Nullable {
		return fmt.Sprintf("ddbsdk.SegmentOf(%s, %s)", v, format)
	}
	if format == "ddbsdk.Identity" {
		return v
	}
	if tok.Field.Type.Scalar == schema.ScalarEnum {
		return v + ".String()"
	}
	return format + "(" + v + ")"
}

// Bounds prints one ddbsdk.Bound argument per field, for a query whose
// optional sort key fields are pointers returned by value.
func (p GoPrinter) Bounds(t Template, value func(f schema.Field) string) []string {
	out := make([]string, len(t.Tokens))
	for i, tok := range t.Tokens {
		out[i] = fmt.Sprintf("ddbsdk.Bound(%s, %s)", value(tok.Field), FormatFunc(tok.Field))
	}
	return out
}

// FormatFunc is the name of the function turning a field's Go value into a
// key segment.
func FormatFunc(f schema.Field) string {
	switch f.Type.Scalar {
	case schema.ScalarInt:
		return "ddbsdk.FormatInt"
	case schema.ScalarFloat:
		return "ddbsdk.FormatFloat"
	case schema.ScalarBoolean:
		return "ddbsdk.FormatBool"
	case schema.ScalarDateTime, schema.ScalarDate:
		return "ddbsdk.FormatEpochMillis"
	case schema.ScalarEnum:
		return f.Type.Enum + ".String"
	}
	return "ddbsdk.Identity"
}

// PatternPrinter prints templates in the {field} pattern syntax of the schema
// dump, e.g. "SUB#{externalId}#{vendor}".
type PatternPrinter struct{}

func (PatternPrinter) Key(t Template) string {
	parts := make([]string, 0, len(t.Tokens)+1)
	if t.Prefix != "" {
		parts = append(parts, t.Prefix)
	}
	for _, tok := range t.Tokens {
		parts = append(parts, "{"+tok.Field.Name+"}")
	}
	return strings.Join(parts, ddbsdk.KeySeparator)
}

var fieldRefRegex = regexp.MustCompile(`\{([^}]*)\}`)

// ParsePattern reads a pattern printed by PatternPrinter back into a
// template.
func ParsePattern(attr, raw string, lookup Lookup) (Template, error) {
	if raw == "" {
		return Template{}, fmt.Errorf("pattern cannot be empty")
	}
	var prefix string
	var fields []string
	for i, part := range strings.Split(raw, ddbsdk.KeySeparator) {
		m := fieldRefRegex.FindStringSubmatch(part)
		if m == nil {
			if i > 0 || strings.ContainsAny(part, "{}") {
				return Template{}, fmt.Errorf("pattern %q: literal %q must be the leading segment", raw, part)
			}
			prefix = part
			continue
		}
		if m[0] != part {
			return Template{}, fmt.Errorf("pattern %q: segment %q mixes literal text and a field", raw, part)
		}
		if m[1] == "" {
			return Template{}, fmt.Errorf("pattern %q: empty field reference", raw)
		}
		fields = append(fields, m[1])
	}
	return Derive(attr, prefix, fields, lookup)
}
