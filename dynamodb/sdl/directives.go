package sdl

import (
	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/vektah/gqlparser/v2/ast"
)

// keyUse selects the field rules of a key.
type keyUse int

const (
	primaryKeyUse keyUse = iota
	indexKeyUse
)

func (x *extractor) primaryKey(def *ast.Definition, m schema.Model) schema.PrimaryKeyConfig {
	simple := def.Directives.ForNames("simpleKey")
	composite := def.Directives.ForNames("compositeKey")
	switch {
	case len(simple)+len(composite) == 0:
		x.fail(def.Position, def.Name, "", "a model needs exactly one of @simpleKey or @compositeKey, found neither")
		return nil
	case len(simple) > 0 && len(composite) > 0:
		x.fail(def.Position, def.Name, "", "a model needs exactly one of @simpleKey or @compositeKey, found both")
		return nil
	case len(simple)+len(composite) > 1:
		x.fail(def.Position, def.Name, "", "the primary key directive is repeated")
		return nil
	}

	if len(simple) == 1 {
		d := simple[0]
		p, ok := x.keyFields(def, m, d, "fields", "prefix", true, primaryKeyUse)
		if !ok {
			return nil
		}
		return schema.SimpleKey{Partition: p}
	}
	d := composite[0]
	p, okP := x.keyFields(def, m, d, "partitionFields", "partitionPrefix", true, primaryKeyUse)
	s, okS := x.keyFields(def, m, d, "sortFields", "sortPrefix", true, primaryKeyUse)
	if !okP || !okS {
		return nil
	}
	return schema.CompositeKey{Partition: p, Sort: s}
}

// keyFields reads a field list and its prefix. required makes an empty field
// list an error; an index key may consist of its prefix alone.
func (x *extractor) keyFields(def *ast.Definition, m schema.Model, d *ast.Directive, fieldsArg, prefixArg string, required bool, use keyUse) (schema.KeyFields, bool) {
	var kf schema.KeyFields
	fields, _, err := stringsArg(d, fieldsArg)
	if err != nil {
		x.fail(d.Position, def.Name, "", "%v", err)
		return kf, false
	}
	if prefixArg != "" {
		prefix, _, err := stringArg(d, prefixArg)
		if err != nil {
			x.fail(d.Position, def.Name, "", "%v", err)
			return kf, false
		}
		kf.Prefix = prefix
	}
	if len(fields) == 0 && (required || kf.Prefix == "") {
		x.fail(d.Position, def.Name, "", "@%s(%s:) must name at least one field", d.Name, fieldsArg)
		return kf, false
	}

	ok := true
	seen := map[string]bool{}
	for _, name := range fields {
		if seen[name] {
			x.fail(d.Position, def.Name, name, "@%s(%s:) lists the field twice", d.Name, fieldsArg)
			ok = false
			continue
		}
		seen[name] = true
		if !x.keyField(def, m, d, name, use) {
			ok = false
		}
	}
	if ok && use == indexKeyUse {
		if name := m.CreatedAtConflict(fields); name != "" {
			x.fail(d.Position, def.Name, name, "@%s(%s:) combines createdAt with %q, which is not a primary key field", d.Name, fieldsArg, name)
			ok = false
		}
	}
	kf.Fields = fields
	return kf, ok
}

func (x *extractor) keyField(def *ast.Definition, m schema.Model, d *ast.Directive, name string, use keyUse) bool {
	f, found := m.Field(name)
	if !found {
		x.fail(d.Position, def.Name, name, "@%s references unknown field %q", d.Name, name)
		return false
	}
	if f.Type.List {
		x.fail(d.Position, def.Name, name, "@%s: list field %q cannot be part of a key", d.Name, name)
		return false
	}
	if f.Role == schema.RoleID {
		x.fail(d.Position, def.Name, name, "@%s: id is derived from the key and cannot be part of it", d.Name)
		return false
	}
	if use == indexKeyUse {
		return true
	}
	switch {
	case f.Nullable:
		x.fail(d.Position, def.Name, name, "@%s: primary key field %q must be non-null", d.Name, name)
	case f.Compute != "":
		x.fail(d.Position, def.Name, name, "@%s: computed field %q cannot be part of the primary key", d.Name, name)
	case f.Role != schema.RoleNone:
		x.fail(d.Position, def.Name, name, "@%s: the %s field changes between writes and cannot be part of the primary key", d.Name, f.Role)
	default:
		return true
	}
	return false
}

func (x *extractor) indexes(def *ast.Definition, m schema.Model) []schema.SecondaryIndex {
	var out []schema.SecondaryIndex
	names := map[string]bool{}
	add := func(d *ast.Directive, idx schema.SecondaryIndex) {
		name := idx.IndexName()
		if names[name] {
			x.fail(d.Position, def.Name, "", "index %q is declared twice", name)
			return
		}
		names[name] = true
		out = append(out, idx)
	}

	for _, d := range def.Directives.ForNames("gsi") {
		if g, ok := x.gsi(def, m, d); ok {
			add(d, g)
		}
	}
	for _, d := range def.Directives.ForNames("lsi") {
		if l, ok := x.lsi(def, m, d); ok {
			add(d, l)
		}
	}
	return out
}

func (x *extractor) indexHeader(def *ast.Definition, d *ast.Directive) (string, schema.Projection, bool) {
	name, _, err := stringArg(d, "name")
	if err != nil {
		x.fail(d.Position, def.Name, "", "%v", err)
		return "", "", false
	}
	if !indexNameRegex.MatchString(name) {
		x.fail(d.Position, def.Name, "", "@%s name %q must be alphanumeric and start with a letter", d.Name, name)
		return "", "", false
	}
	proj, _, err := stringArg(d, "projection")
	if err != nil {
		x.fail(d.Position, def.Name, "", "%v", err)
		return "", "", false
	}
	return name, schema.Projection(proj), true
}

func (x *extractor) gsi(def *ast.Definition, m schema.Model, d *ast.Directive) (schema.GSI, bool) {
	name, proj, ok := x.indexHeader(def, d)
	if !ok {
		return schema.GSI{}, false
	}
	g := schema.GSI{Name: name, Projection: proj}

	single, hasSingle, err := stringArg(d, "field")
	if err != nil {
		x.fail(d.Position, def.Name, "", "%v", err)
		return g, false
	}
	_, hasComposite, _ := stringsArg(d, "partitionFields")
	_, hasPrefix, _ := stringArg(d, "partitionPrefix")
	_, hasSort, _ := stringsArg(d, "sortFields")
	_, hasSortPrefix, _ := stringArg(d, "sortPrefix")

	if hasSingle {
		if hasComposite || hasPrefix || hasSort || hasSortPrefix {
			x.fail(d.Position, def.Name, "", "@gsi %s: field: cannot be combined with partition or sort arguments", name)
			return g, false
		}
		if !x.keyField(def, m, d, single, indexKeyUse) {
			return g, false
		}
		g.Partition = schema.KeyFields{Fields: []string{single}}
		return g, true
	}

	if !hasComposite && !hasPrefix {
		x.fail(d.Position, def.Name, "", "@gsi %s needs field: or partitionFields:", name)
		return g, false
	}
	p, ok := x.keyFields(def, m, d, "partitionFields", "partitionPrefix", false, indexKeyUse)
	if !ok {
		return g, false
	}
	g.Partition = p
	if hasSort || hasSortPrefix {
		s, ok := x.keyFields(def, m, d, "sortFields", "sortPrefix", false, indexKeyUse)
		if !ok {
			return g, false
		}
		g.Sort = &s
	}
	return g, true
}

func (x *extractor) lsi(def *ast.Definition, m schema.Model, d *ast.Directive) (schema.LSI, bool) {
	name, proj, ok := x.indexHeader(def, d)
	if !ok {
		return schema.LSI{}, false
	}
	if def.Directives.ForName("compositeKey") == nil {
		x.fail(d.Position, def.Name, "", "@lsi %s needs a model with a @compositeKey", name)
		return schema.LSI{}, false
	}
	s, ok := x.keyFields(def, m, d, "sortFields", "sortPrefix", true, indexKeyUse)
	if !ok {
		return schema.LSI{}, false
	}
	return schema.LSI{Name: name, Sort: s, Projection: proj}, true
}

func (x *extractor) cdc(def *ast.Definition, m schema.Model) schema.ChangeDataCaptureConfig {
	d := def.Directives.ForName("cdc")
	if d == nil {
		return nil
	}
	if len(def.Directives.ForNames("cdc")) > 1 {
		x.fail(d.Position, def.Name, "", "@cdc is repeated")
		return nil
	}
	raw, _, err := stringArg(d, "event")
	if err != nil {
		x.fail(d.Position, def.Name, "", "%v", err)
		return nil
	}
	event, err := schema.ParseChangeEvent(raw)
	if err != nil {
		x.fail(d.Position, def.Name, "", "@cdc: %v", err)
		return nil
	}
	handler, _, err := stringArg(d, "handler")
	if err != nil || handler == "" {
		x.fail(d.Position, def.Name, "", "@cdc needs a handler package")
		return nil
	}

	produces, ok, err := stringArg(d, "produces")
	if err != nil {
		x.fail(d.Position, def.Name, "", "%v", err)
		return nil
	}
	if !ok {
		return schema.Trigger{Event: event, SourceModel: def.Name, Handler: handler}
	}

	target := x.schema.Types[produces]
	if target == nil || !implementsModel(x.schema, target) {
		x.fail(d.Position, def.Name, "", "@cdc(produces: %q) does not name a type implementing %s", produces, ModelInterface)
		return nil
	}
	if target.Name == def.Name {
		x.fail(d.Position, def.Name, "", "@cdc(produces:) cannot name the model itself")
		return nil
	}
	x.checkEnricherKey(def, d, m, target)
	return schema.Enricher{
		Event:       event,
		SourceModel: def.Name,
		TargetModel: target.Name,
		TargetTable: x.tableOf(target),
		Handler:     handler,
	}
}

// checkEnricherKey requires every primary key field of the target to exist
// on the source with the same type, since the target key is derived from the
// source record.
func (x *extractor) checkEnricherKey(def *ast.Definition, d *ast.Directive, source schema.Model, target *ast.Definition) {
	var names []string
	for _, kd := range append(target.Directives.ForNames("simpleKey"), target.Directives.ForNames("compositeKey")...) {
		for _, arg := range []string{"fields", "partitionFields", "sortFields"} {
			fields, _, _ := stringsArg(kd, arg)
			names = append(names, fields...)
		}
	}
	for _, name := range names {
		tf := target.Fields.ForName(name)
		if tf == nil {
			// Reported when the target itself is extracted.
			continue
		}
		sf, ok := source.Field(name)
		if !ok {
			x.fail(d.Position, def.Name, name, "@cdc(produces: %q): key field %q of %s is missing on %s", target.Name, name, target.Name, def.Name)
			continue
		}
		tt, err := x.fieldType(tf.Type)
		if err != nil {
			continue
		}
		if tt != sf.Type {
			x.fail(d.Position, def.Name, name, "@cdc(produces: %q): key field %q is %s on %s but %s on %s", target.Name, name, tt, target.Name, sf.Type, def.Name)
		}
	}
}

func implementsModel(s *ast.Schema, def *ast.Definition) bool {
	if def.Kind != ast.Object {
		return false
	}
	for _, i := range s.Implements[def.Name] {
		if i.Name == ModelInterface {
			return true
		}
	}
	return false
}
