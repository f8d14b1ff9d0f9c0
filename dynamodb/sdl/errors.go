package sdl

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// SchemaError is a directive misuse or an unresolved reference. Any
// SchemaError aborts generation.
type SchemaError struct {
	File    string
	Line    int
	Model   string
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	if e.Model != "" {
		b.WriteString(e.Model)
		if e.Field != "" {
			b.WriteString("." + e.Field)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// SchemaErrors is every problem found in one extraction.
type SchemaErrors []*SchemaError

func (e SchemaErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func newSchemaError(pos *ast.Position, model, field, format string, args ...any) *SchemaError {
	e := &SchemaError{Model: model, Field: field, Message: fmt.Sprintf(format, args...)}
	if pos != nil {
		e.Line = pos.Line
		if pos.Src != nil {
			e.File = pos.Src.Name
		}
	}
	return e
}

func fromGQLError(err *gqlerror.Error) *SchemaError {
	e := &SchemaError{Message: err.Message}
	if file, ok := err.Extensions["file"].(string); ok {
		e.File = file
	}
	if len(err.Locations) > 0 {
		e.Line = err.Locations[0].Line
	}
	return e
}
