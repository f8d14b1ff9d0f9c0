package sdl

import (
	"fmt"
	"go/token"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/vektah/gqlparser/v2/ast"
)

// ModelInterface is the interface every stored type implements.
const ModelInterface = "Model"

// Options are the generation-time inputs of extraction.
type Options struct {
	// DefaultTable is the table of models without a @table name.
	DefaultTable string
}

// conventional columns of the managed fields. The id field is derived from
// the key and has no column.
var conventionalColumns = map[schema.FieldRole]string{
	schema.RoleVersion:   schema.AttrVersion,
	schema.RoleCreatedAt: schema.AttrCreatedAt,
	schema.RoleUpdatedAt: schema.AttrUpdatedAt,
	schema.RoleTTL:       schema.AttrTTL,
}

var reservedColumns = map[string]bool{
	schema.AttrPartitionKey: true,
	schema.AttrSortKey:      true,
	schema.AttrEntityType:   true,
	schema.AttrVersion:      true,
	schema.AttrCreatedAt:    true,
	schema.AttrUpdatedAt:    true,
	schema.AttrTTL:          true,
}

var (
	durationRegex  = regexp.MustCompile(`^(\d+)([smhd])$`)
	indexNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

type extractor struct {
	schema *ast.Schema
	opts   Options
	errs   SchemaErrors
}

// Extract finds every object type implementing Model, in source order, and
// returns the tables they are stored in. It returns SchemaErrors, and no
// tables, when any model is invalid.
func Extract(s *ast.Schema, opts Options) ([]schema.Table, error) {
	x := &extractor{schema: s, opts: opts}
	var models []modelDef
	for _, def := range s.PossibleTypes[ModelInterface] {
		if def.Kind != ast.Object {
			continue
		}
		if m, ok := x.model(def); ok {
			models = append(models, m)
		}
	}
	if len(x.errs) > 0 {
		return nil, x.errs
	}
	tables := x.assemble(models)
	if len(x.errs) > 0 {
		return nil, x.errs
	}
	return tables, nil
}

// modelDef is an extracted model with the table level settings declared on
// it.
type modelDef struct {
	def   *ast.Definition
	model schema.Model
	pitr  bool
}

func (x *extractor) fail(pos *ast.Position, model, field, format string, args ...any) {
	x.errs = append(x.errs, newSchemaError(pos, model, field, format, args...))
}

func (x *extractor) model(def *ast.Definition) (modelDef, bool) {
	before := len(x.errs)
	m := schema.Model{Name: def.Name}

	for _, fd := range def.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		if f, ok := x.field(def, fd); ok {
			m.Fields = append(m.Fields, f)
		}
	}
	x.checkColumns(def, m.Fields)
	m.TTL = x.ttl(def, &m)
	m.PrimaryKey = x.primaryKey(def, m)
	m.Indexes = x.indexes(def, m)
	m.ConsistentRead = def.Directives.ForName("consistent") != nil

	table, pitr := x.table(def)
	m.Table = table
	m.CDC = x.cdc(def, m)

	return modelDef{def: def, model: m, pitr: pitr}, len(x.errs) == before
}

func roleOf(name string) schema.FieldRole {
	switch name {
	case schema.FieldID:
		return schema.RoleID
	case schema.FieldVersion:
		return schema.RoleVersion
	case schema.FieldCreatedAt:
		return schema.RoleCreatedAt
	case schema.FieldUpdatedAt:
		return schema.RoleUpdatedAt
	}
	return schema.RoleNone
}

func (x *extractor) field(def *ast.Definition, fd *ast.FieldDefinition) (schema.Field, bool) {
	f := schema.Field{Name: fd.Name, Nullable: !fd.Type.NonNull, Role: roleOf(fd.Name)}
	if fd.Directives.ForName("ttl") != nil {
		if f.Role != schema.RoleNone {
			x.fail(fd.Position, def.Name, fd.Name, "@ttl cannot be used on the managed field %s", fd.Name)
			return f, false
		}
		f.Role = schema.RoleTTL
	}

	typ, err := x.fieldType(fd.Type)
	if err != nil {
		x.fail(fd.Position, def.Name, fd.Name, "%v", err)
		return f, false
	}
	f.Type = typ

	if d := fd.Directives.ForName("computed"); d != nil {
		fn, _, err := stringArg(d, "fn")
		switch {
		case err != nil:
			x.fail(d.Position, def.Name, fd.Name, "%v", err)
		case f.Role != schema.RoleNone:
			x.fail(d.Position, def.Name, fd.Name, "@computed cannot be used on the %s field", f.Role)
		case !token.IsIdentifier(fn):
			x.fail(d.Position, def.Name, fd.Name, "@computed(fn: %q) is not a Go identifier", fn)
		}
		f.Compute = fn
	}

	f.Column = x.column(def, fd, f)
	return f, true
}

func (x *extractor) fieldType(t *ast.Type) (schema.FieldType, error) {
	var ft schema.FieldType
	if t.Elem != nil {
		if t.Elem.Elem != nil {
			return ft, fmt.Errorf("nested lists are not supported")
		}
		ft.List = true
	}
	switch name := t.Name(); name {
	case "ID":
		ft.Scalar = schema.ScalarID
	case "String":
		ft.Scalar = schema.ScalarString
	case "Int":
		ft.Scalar = schema.ScalarInt
	case "Float":
		ft.Scalar = schema.ScalarFloat
	case "Boolean":
		ft.Scalar = schema.ScalarBoolean
	case "DateTime":
		ft.Scalar = schema.ScalarDateTime
	case "Date":
		ft.Scalar = schema.ScalarDate
	default:
		def := x.schema.Types[name]
		if def == nil || def.Kind != ast.Enum {
			return ft, fmt.Errorf("type %s is not supported: fields must be scalars, enums or lists of them", t.String())
		}
		ft.Scalar = schema.ScalarEnum
		ft.Enum = name
	}
	if ft.List && ft.Scalar.IsTime() {
		return ft, fmt.Errorf("lists of %s are not supported", ft.Scalar)
	}
	return ft, nil
}

func (x *extractor) column(def *ast.Definition, fd *ast.FieldDefinition, f schema.Field) string {
	alias := fd.Directives.ForName("alias")
	if f.Role == schema.RoleID {
		if alias != nil {
			x.fail(alias.Position, def.Name, fd.Name, "@alias cannot be used on id, it is derived from the key")
		}
		return ""
	}
	if conventional, ok := conventionalColumns[f.Role]; ok {
		if alias != nil {
			x.fail(alias.Position, def.Name, fd.Name, "@alias cannot be used on the %s field, its column is %s", f.Role, conventional)
		}
		return conventional
	}
	col := strings.ToLower(fd.Name)
	if alias != nil {
		name, _, err := stringArg(alias, "name")
		if err != nil {
			x.fail(alias.Position, def.Name, fd.Name, "%v", err)
			return col
		}
		col = name
	}
	switch {
	case col == "":
		x.fail(fd.Position, def.Name, fd.Name, "empty column name")
	case reservedColumns[col]:
		x.fail(fd.Position, def.Name, fd.Name, "column %q is reserved", col)
	case strings.HasSuffix(col, "_pk") || strings.HasSuffix(col, "_sk"):
		x.fail(fd.Position, def.Name, fd.Name, "column %q is reserved for index keys", col)
	}
	return col
}

func (x *extractor) checkColumns(def *ast.Definition, fields []schema.Field) {
	seen := map[string]string{}
	for _, f := range fields {
		if f.Column == "" {
			continue
		}
		if other, ok := seen[f.Column]; ok {
			x.fail(def.Position, def.Name, f.Name, "column %q is also used by %s", f.Column, other)
			continue
		}
		seen[f.Column] = f.Name
	}
}

func (x *extractor) ttl(def *ast.Definition, m *schema.Model) *schema.TTLConfig {
	var cfg *schema.TTLConfig
	for _, fd := range def.Fields {
		d := fd.Directives.ForName("ttl")
		if d == nil {
			continue
		}
		if cfg != nil {
			x.fail(d.Position, def.Name, fd.Name, "only one field can be marked @ttl, %s already is", cfg.Field)
			continue
		}
		f, ok := m.Field(fd.Name)
		if !ok {
			continue
		}
		cfg = &schema.TTLConfig{Field: fd.Name}
		if f.Type.Scalar != schema.ScalarDateTime || f.Type.List {
			x.fail(d.Position, def.Name, fd.Name, "@ttl field must be a DateTime, got %s", f.Type)
		}
		raw, ok, err := stringArg(d, "duration")
		switch {
		case err != nil:
			x.fail(d.Position, def.Name, fd.Name, "%v", err)
		case ok:
			dur, err := parseDuration(raw)
			if err != nil {
				x.fail(d.Position, def.Name, fd.Name, "%v", err)
			}
			cfg.Duration = dur
		case !f.Nullable:
			x.fail(d.Position, def.Name, fd.Name, "@ttl without a duration needs a nullable field, the caller supplies the expiry")
		}
	}
	return cfg
}

// parseDuration reads the <n><s|m|h|d> grammar of @ttl.
func parseDuration(s string) (time.Duration, error) {
	m := durationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ttl duration %q, want <n><s|m|h|d>", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid ttl duration %q, want a positive amount", s)
	}
	unit := map[string]time.Duration{"s": time.Second, "m": time.Minute, "h": time.Hour, "d": 24 * time.Hour}[m[2]]
	return time.Duration(n) * unit, nil
}

func (x *extractor) table(def *ast.Definition) (string, bool) {
	name := x.opts.DefaultTable
	var pitr bool
	if d := def.Directives.ForName("table"); d != nil {
		n, ok, err := stringArg(d, "name")
		if err != nil {
			x.fail(d.Position, def.Name, "", "%v", err)
		}
		if ok {
			name = n
		}
		if pitr, err = boolArg(d, "pointInTimeRecovery"); err != nil {
			x.fail(d.Position, def.Name, "", "%v", err)
		}
	}
	if name == "" {
		x.fail(def.Position, def.Name, "", "no table: add @table(name:) or configure defaultTable")
	}
	return name, pitr
}

// tableOf resolves the table of another model without extracting it.
func (x *extractor) tableOf(def *ast.Definition) string {
	if d := def.Directives.ForName("table"); d != nil {
		if n, ok, err := stringArg(d, "name"); err == nil && ok {
			return n
		}
	}
	return x.opts.DefaultTable
}
