package sdl

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// argValue returns the supplied argument or its declared default. A null
// literal counts as absent.
func argValue(d *ast.Directive, name string) *ast.Value {
	if a := d.Arguments.ForName(name); a != nil {
		if a.Value == nil || a.Value.Kind == ast.NullValue {
			return nil
		}
		return a.Value
	}
	if d.Definition != nil {
		if def := d.Definition.Arguments.ForName(name); def != nil {
			return def.DefaultValue
		}
	}
	return nil
}

func stringArg(d *ast.Directive, name string) (string, bool, error) {
	v := argValue(d, name)
	if v == nil {
		return "", false, nil
	}
	switch v.Kind {
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, true, nil
	}
	return "", false, fmt.Errorf("@%s(%s:) must be a string, got %s", d.Name, name, v.String())
}

// stringsArg accepts a list of strings, or a single string as a one element
// list the way GraphQL input coercion does.
func stringsArg(d *ast.Directive, name string) ([]string, bool, error) {
	v := argValue(d, name)
	if v == nil {
		return nil, false, nil
	}
	switch v.Kind {
	case ast.StringValue, ast.BlockValue:
		return []string{v.Raw}, true, nil
	case ast.ListValue:
		out := make([]string, 0, len(v.Children))
		for _, c := range v.Children {
			if c.Value.Kind != ast.StringValue && c.Value.Kind != ast.BlockValue {
				return nil, false, fmt.Errorf("@%s(%s:) must be a list of strings, got %s", d.Name, name, v.String())
			}
			out = append(out, c.Value.Raw)
		}
		return out, true, nil
	}
	return nil, false, fmt.Errorf("@%s(%s:) must be a list of strings, got %s", d.Name, name, v.String())
}

func boolArg(d *ast.Directive, name string) (bool, error) {
	v := argValue(d, name)
	if v == nil {
		return false, nil
	}
	if v.Kind != ast.BooleanValue {
		return false, fmt.Errorf("@%s(%s:) must be a boolean, got %s", d.Name, name, v.String())
	}
	return v.Raw == "true", nil
}
