package ddbgen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/acksell/ddbsdl/dynamodb/index"
	"github.com/acksell/ddbsdl/dynamodb/infra"
	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/acksell/ddbsdl/dynamodb/sdl"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
)

// Generator runs the pipeline of one project: extraction, the data layer,
// the CDC mains, the schema dump and the infrastructure template.
type Generator struct {
	cfg *Config
	log logrus.FieldLogger
}

func New(cfg *Config, log logrus.FieldLogger) *Generator {
	return &Generator{cfg: cfg, log: log}
}

// Output is everything one run produces.
type Output struct {
	Tables []schema.Table
	// Files maps absolute paths to their contents.
	Files map[string][]byte
}

// Paths returns the file paths in lexical order.
func (o *Output) Paths() []string {
	out := make([]string, 0, len(o.Files))
	for p := range o.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Extract loads the SDL files and returns the tables. Any invalid directive
// use is reported in one sdl.SchemaErrors.
func (g *Generator) Extract() ([]schema.Table, error) {
	tables, _, err := g.extract()
	return tables, err
}

func (g *Generator) extract() ([]schema.Table, *ast.Schema, error) {
	patterns := make([]string, len(g.cfg.Schema))
	for i, p := range g.cfg.Schema {
		patterns[i] = g.cfg.resolve(p)
	}
	s, err := sdl.LoadFiles(patterns...)
	if err != nil {
		return nil, nil, err
	}
	tables, err := sdl.Extract(s, sdl.Options{DefaultTable: g.cfg.DefaultTable})
	if err != nil {
		return nil, nil, err
	}
	models := 0
	for _, t := range tables {
		models += len(t.Models)
	}
	g.log.WithFields(logrus.Fields{
		"tables": len(tables),
		"models": models,
	}).Info("extracted schema")
	return tables, s, nil
}

// Document returns the schema dump of the project.
func (g *Generator) Document() (schema.Document, error) {
	tables, err := g.Extract()
	if err != nil {
		return schema.Document{}, err
	}
	return Document(tables, g.indexOptions())
}

func (g *Generator) indexOptions() index.Options {
	return index.Options{PadEmptySegments: g.cfg.LegacyEmptyKeySegmentBehavior}
}

// Build runs the pipeline in memory. Nothing is written.
func (g *Generator) Build() (*Output, error) {
	tables, s, err := g.extract()
	if err != nil {
		return nil, err
	}
	outDir := g.cfg.resolve(g.cfg.Output.Dir)
	out := &Output{Tables: tables, Files: map[string][]byte{}}

	data, err := buildPackage(packageInput{
		Package:           g.cfg.Output.Package,
		Import:            g.cfg.Output.ImportPath,
		Runtime:           g.cfg.DependenciesModulePath,
		EventSourcePrefix: g.cfg.Infra.EventSourcePrefix,
		EventBusName:      g.cfg.Infra.EventBusName,
		Enums:             enumsOf(tables, enumValues(s)),
		Index:             g.indexOptions(),
	}, tables)
	if err != nil {
		return nil, err
	}
	files, err := render(data)
	if err != nil {
		return nil, err
	}
	for name, src := range files {
		out.Files[filepath.Join(outDir, filepath.FromSlash(name))] = src
	}

	doc, err := Document(tables, g.indexOptions())
	if err != nil {
		return nil, err
	}
	dump, err := MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	out.Files[filepath.Join(outDir, SchemaFile)] = dump

	frag, err := infra.Build(tables, infra.Options{
		Config:           g.cfg.Infra,
		DispatcherAlarms: g.cfg.DefaultDispatcherAlarmThresholds,
		HandlerAlarms:    g.cfg.DefaultHandlerAlarmThresholds,
	})
	if err != nil {
		return nil, fmt.Errorf("infra: %w", err)
	}
	tmpl, err := infra.Render(frag, "Tables and CDC units of "+g.cfg.Output.ImportPath)
	if err != nil {
		return nil, fmt.Errorf("infra: %w", err)
	}
	out.Files[filepath.Join(outDir, filepath.FromSlash(g.cfg.Infra.Template))] = tmpl

	return out, nil
}

// Generate builds the project and writes every file. On error nothing is
// written.
func (g *Generator) Generate() (*Output, error) {
	out, err := g.Build()
	if err != nil {
		return nil, err
	}
	if err := WriteFiles(out.Files); err != nil {
		return nil, err
	}
	for _, p := range out.Paths() {
		g.log.WithField("file", p).Debug("wrote file")
	}
	g.log.WithField("files", len(out.Files)).Info("generated data layer")
	return out, nil
}

// WriteFiles writes every file to a temporary sibling first and renames
// them into place once all writes succeeded.
func WriteFiles(files map[string][]byte) (err error) {
	temps := map[string]string{}
	defer func() {
		if err != nil {
			for _, tmp := range temps {
				os.Remove(tmp)
			}
		}
	}()

	for path, src := range files {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		f, err := os.CreateTemp(dir, ".ddbgen-*")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		temps[path] = f.Name()
		_, werr := f.Write(src)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := os.Chmod(f.Name(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	for path, tmp := range temps {
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("rename %s: %w", path, err)
		}
		delete(temps, path)
	}
	return nil
}

func enumValues(s *ast.Schema) func(string) []string {
	return func(name string) []string {
		def := s.Types[name]
		if def == nil {
			return nil
		}
		out := make([]string, len(def.EnumValues))
		for i, v := range def.EnumValues {
			out[i] = v.Name
		}
		return out
	}
}
