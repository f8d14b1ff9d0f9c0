// Package sdl reads a GraphQL SDL annotated with data layer directives into
// the schema IR.
//
// Load parses and validates the SDL together with a built-in prelude that
// declares the directives, the Model interface and the DateTime and Date
// scalars. Extract then turns every type implementing Model into a
// schema.Model and groups the models into tables.
package sdl

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

//go:embed prelude.graphql
var preludeGraphql string

// Prelude declares the directives and types every schema builds on.
var Prelude = &ast.Source{Name: "ddbsdl_prelude.graphql", Input: preludeGraphql, BuiltIn: true}

// Load parses sources together with the prelude.
func Load(sources ...*ast.Source) (*ast.Schema, error) {
	s, err := gqlparser.LoadSchema(append([]*ast.Source{Prelude}, sources...)...)
	if err != nil {
		var gqlErr *gqlerror.Error
		if errors.As(err, &gqlErr) {
			return nil, SchemaErrors{fromGQLError(gqlErr)}
		}
		return nil, err
	}
	return s, nil
}

// LoadFiles loads every file matched by the glob patterns. Files are read in
// lexical order so extraction order is stable.
func LoadFiles(patterns ...string) (*ast.Schema, error) {
	seen := map[string]bool{}
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("schema glob %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no schema files match %v", patterns)
	}
	sort.Strings(files)

	sources := make([]*ast.Source, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		sources = append(sources, &ast.Source{Name: f, Input: string(b)})
	}
	return Load(sources...)
}
