package ddbgen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/acksell/ddbsdl/dynamodb/index"
	"github.com/acksell/ddbsdl/dynamodb/index/keys"
	"github.com/acksell/ddbsdl/dynamodb/infra"
	"github.com/acksell/ddbsdl/dynamodb/schema"
)

// =============================================================================
// Template data
// =============================================================================

type packageData struct {
	Package string
	// Import is the import path of the generated data package, used by the
	// generated mains.
	Import string
	// Runtime is the import path prefix of the runtime packages,
	// e.g. github.com/acksell/ddbsdl.
	Runtime string
	// EventSourcePrefix and EventBusName are baked into the dispatchers.
	EventSourcePrefix string
	EventBusName      string
	Tables            []tableData
	Enums             []enumData
	Models            []modelData
	// Dispatchers has one entry per table with a CDC enabled model.
	Dispatchers []dispatcherData
	Triggers    []triggerData
	Enrichers   []enricherData
}

type tableData struct {
	Name   string
	GoName string
	EnvVar string
}

type enumData struct {
	Name   string
	Values []enumValue
}

type enumValue struct {
	Const string
	Value string
}

type modelData struct {
	Name       string
	Var        string
	Table      tableData
	HasSortKey bool
	Consistent bool

	Fields     []fieldData
	UserFields []fieldData
	KeyFields  []fieldData
	Computed   []fieldData
	TTL        *ttlData

	KeyItem      string
	IndexAttrs   []attrData
	KeepExisting []string
	// RemoveUnset lists the index attributes, and the optional columns
	// feeding them, removed by a write that leaves them unset.
	RemoveUnset     []string
	RemovesOptional bool

	Queries []queryData
	CDC     *cdcData
}

type fieldData struct {
	Name     string
	GoName   string
	Column   string
	GoType   string
	Nullable bool
	Compute  string
	// ValueType is the type a computed field's Lazy holds.
	ValueType string
	Read      string
	Write     string
}

type ttlData struct {
	Field fieldData
	// Duration is a Go expression, empty when the caller supplies the expiry.
	Duration string
}

type attrData struct {
	Attr string
	Expr string
}

type queryData struct {
	Type      string
	Doc       string
	Index     string
	KeysOnly  bool
	Fields    []queryField
	Partition attrData
	Sort      *sortData
	// Consistent is false for global indexes, which only support eventual
	// consistency.
	Consistent bool
}

type queryField struct {
	GoName string
	GoType string
}

type sortData struct {
	Attr   string
	Prefix string
	Total  int
	Pad    bool
	Bounds []string
}

type cdcData struct {
	Kind    string
	Event   string
	Events  []string
	Handler string
	Target  string
}

type dispatcherData struct {
	Table       tableData
	EntityTypes []string
	Dir         string
}

type triggerData struct {
	Model modelData
	Dir   string
}

type enricherData struct {
	Source modelData
	Target modelData
	// KeyFields are the target key fields read from a source record s.
	KeyFields []attrData
	Dir       string
}

// =============================================================================
// Building
// =============================================================================

type builder struct {
	opts index.Options
}

// packageInput is everything buildPackage reads besides the schema.
type packageInput struct {
	Package           string
	Import            string
	Runtime           string
	EventSourcePrefix string
	EventBusName      string
	Enums             []enumData
	Index             index.Options
}

func buildPackage(in packageInput, tables []schema.Table) (packageData, error) {
	b := &builder{opts: in.Index}
	data := packageData{
		Package:           in.Package,
		Import:            in.Import,
		Runtime:           in.Runtime,
		EventSourcePrefix: in.EventSourcePrefix,
		EventBusName:      in.EventBusName,
		Enums:             in.Enums,
	}
	models := map[string]modelData{}
	for _, t := range tables {
		td := tableOf(t.Name)
		data.Tables = append(data.Tables, td)
		for _, m := range t.Models {
			md, err := b.model(m, t, td)
			if err != nil {
				return packageData{}, err
			}
			data.Models = append(data.Models, md)
			models[m.Name] = md
		}
	}

	for _, u := range infra.Units(tables) {
		switch u.Kind {
		case infra.KindDispatcher:
			data.Dispatchers = append(data.Dispatchers, dispatcherData{
				Table:       tableOf(u.Table),
				EntityTypes: u.Models,
				Dir:         u.Name,
			})
		case infra.KindTrigger:
			data.Triggers = append(data.Triggers, triggerData{Model: models[u.Model], Dir: u.Name})
		case infra.KindEnricher:
			source := models[u.Model]
			target, ok := models[source.CDC.Target]
			if !ok {
				return packageData{}, fmt.Errorf("model %s: enricher target %s not found", u.Model, source.CDC.Target)
			}
			data.Enrichers = append(data.Enrichers, enricherData{
				Source:    source,
				Target:    target,
				KeyFields: sourceKey(source, target),
				Dir:       u.Name,
			})
		}
	}
	return data, nil
}

func tableOf(name string) tableData {
	return tableData{Name: name, GoName: exportedName(name), EnvVar: schema.TableEnvVar(name)}
}

func (b *builder) model(m schema.Model, t schema.Table, td tableData) (modelData, error) {
	pi, err := index.Derive(m, b.opts)
	if err != nil {
		return modelData{}, err
	}
	md := modelData{
		Name:         m.Name,
		Var:          unexportedName(m.Name),
		Table:        td,
		HasSortKey:   t.HasSortKey(),
		Consistent:   m.ConsistentRead,
		KeepExisting: pi.KeepExisting(),
	}

	byName := map[string]fieldData{}
	for _, f := range m.Fields {
		fd := b.field(m, f)
		byName[f.Name] = fd
		md.Fields = append(md.Fields, fd)
		if fd.Compute != "" {
			md.Computed = append(md.Computed, fd)
		}
	}
	for _, f := range m.UserFields() {
		md.UserFields = append(md.UserFields, byName[f.Name])
	}
	for _, name := range m.KeyFieldNames() {
		md.KeyFields = append(md.KeyFields, byName[name])
	}
	if m.TTL != nil {
		ttl := &ttlData{Field: byName[m.TTL.Field]}
		if m.TTL.Duration > 0 {
			ttl.Duration = durationExpr(m.TTL.Duration)
		}
		md.TTL = ttl
	}

	record := keys.GoPrinter{Value: func(f schema.Field) string {
		if f.Compute != "" {
			return computedVar(f)
		}
		return "r." + byName[f.Name].GoName
	}}
	key := keys.GoPrinter{Value: func(f schema.Field) string { return "k." + byName[f.Name].GoName }}
	md.KeyItem = keyItem(key, pi)
	kept := map[string]bool{}
	for _, attr := range md.KeepExisting {
		kept[attr] = true
	}
	optional := map[string]bool{}
	for _, tmpl := range pi.IndexTemplates() {
		md.IndexAttrs = append(md.IndexAttrs, attrData{Attr: tmpl.Attr, Expr: record.Key(tmpl)})
		for _, tok := range tmpl.Tokens {
			f := tok.Field
			if !f.Nullable || f.Role != schema.RoleNone || optional[f.Column] {
				continue
			}
			optional[f.Column] = true
			md.RemoveUnset = append(md.RemoveUnset, f.Column)
		}
		if !kept[tmpl.Attr] {
			md.RemoveUnset = append(md.RemoveUnset, tmpl.Attr)
		}
	}
	md.RemovesOptional = len(optional) > 0

	md.Queries = append(md.Queries, b.query(m, byName, queryData{
		Type:       m.Name + "PrimaryQuery",
		Doc:        "selects records of the primary key.",
		Consistent: m.ConsistentRead,
	}, pi.Partition, pi.Sort))
	for _, si := range pi.Secondary {
		doc := fmt.Sprintf("selects records of the global index %s.", si.Name)
		if si.Local {
			doc = fmt.Sprintf("selects records of the local index %s.", si.Name)
		}
		md.Queries = append(md.Queries, b.query(m, byName, queryData{
			Type:       m.Name + exportedName(si.Name) + "Query",
			Doc:        doc,
			Index:      si.Name,
			KeysOnly:   si.Projection == schema.ProjectionKeysOnly,
			Consistent: si.Local && m.ConsistentRead,
		}, si.Partition, si.Sort))
	}

	if m.CDC != nil {
		md.CDC = cdcOf(m.CDC)
	}
	return md, nil
}

func keyItem(p keys.GoPrinter, pi index.PrimaryIndex) string {
	if pi.Sort == nil {
		return fmt.Sprintf("ddbsdk.KeyOf(%s)", p.Key(pi.Partition))
	}
	return fmt.Sprintf("ddbsdk.KeyOf(%s, %s)", p.Key(pi.Partition), p.Key(*pi.Sort))
}

// query fills the condition type of one key namespace. Partition fields are
// required; sort fields are pointers, bound in key order.
func (b *builder) query(m schema.Model, byName map[string]fieldData, q queryData, partition keys.Template, sortKey *keys.Template) queryData {
	inPartition := map[string]bool{}
	for _, tok := range partition.Tokens {
		fd := byName[tok.Field.Name]
		if inPartition[fd.Name] {
			continue
		}
		inPartition[fd.Name] = true
		q.Fields = append(q.Fields, queryField{GoName: fd.GoName, GoType: plainType(fd)})
	}
	p := keys.GoPrinter{Value: func(f schema.Field) string { return "q." + byName[f.Name].GoName }}
	q.Partition = attrData{Attr: partition.Attr, Expr: p.Key(partition)}

	if sortKey == nil {
		return q
	}
	seen := map[string]bool{}
	for _, tok := range sortKey.Tokens {
		fd := byName[tok.Field.Name]
		if inPartition[fd.Name] || seen[fd.Name] {
			continue
		}
		seen[fd.Name] = true
		q.Fields = append(q.Fields, queryField{GoName: fd.GoName, GoType: "*" + baseType(b.scalarType(tok.Field))})
	}
	bounds := p.Bounds(*sortKey, func(f schema.Field) string {
		fd := byName[f.Name]
		if inPartition[f.Name] && !fd.Nullable {
			return "&q." + fd.GoName
		}
		return "q." + fd.GoName
	})
	q.Sort = &sortData{
		Attr:   sortKey.Attr,
		Prefix: strconv.Quote(sortKey.Prefix),
		Total:  len(sortKey.Tokens),
		Pad:    sortKey.Pad,
		Bounds: bounds,
	}
	return q
}

func cdcOf(c schema.ChangeDataCaptureConfig) *cdcData {
	d := &cdcData{Event: string(c.ChangeEvent())}
	for _, e := range c.ChangeEvent().Expand() {
		d.Events = append(d.Events, string(e))
	}
	switch x := c.(type) {
	case schema.Trigger:
		d.Kind = "trigger"
		d.Handler = x.Handler
	case schema.Enricher:
		d.Kind = "enricher"
		d.Handler = x.Handler
		d.Target = x.TargetModel
	}
	return d
}

// =============================================================================
// Fields
// =============================================================================

func (b *builder) field(m schema.Model, f schema.Field) fieldData {
	fd := fieldData{
		Name:     f.Name,
		GoName:   exportedName(f.Name),
		Column:   f.Column,
		Nullable: f.Nullable,
		Compute:  f.Compute,
	}
	value := b.scalarType(f)
	if f.Type.List {
		value = "[]" + value
	} else if f.Nullable {
		value = "*" + value
	}
	fd.GoType = value
	if f.Compute != "" {
		fd.ValueType = value
		fd.GoType = "*ddbsdk.Lazy[" + value + "]"
	}
	fd.Read = b.read(m, f, value)
	fd.Write = b.write(f, fd)
	return fd
}

func (b *builder) scalarType(f schema.Field) string {
	switch f.Type.Scalar {
	case schema.ScalarInt:
		return "int"
	case schema.ScalarFloat:
		return "float64"
	case schema.ScalarBoolean:
		return "bool"
	case schema.ScalarDateTime, schema.ScalarDate:
		return "time.Time"
	case schema.ScalarEnum:
		return f.Type.Enum
	}
	return "string"
}

// plainType is the Go type of a field outside the Lazy wrapper.
func plainType(fd fieldData) string {
	if fd.ValueType != "" {
		return fd.ValueType
	}
	return fd.GoType
}

func baseType(t string) string {
	return strings.TrimPrefix(t, "*")
}

func (b *builder) read(m schema.Model, f schema.Field, value string) string {
	col := strconv.Quote(f.Column)
	switch f.Role {
	case schema.RoleID:
		return fmt.Sprintf("ddbsdk.NodeIDFromItem(r, %q, %t)", m.Name, m.PrimaryKey.Shape() == schema.KeyShapeComposite)
	case schema.RoleVersion:
		return "r.Int(ddbsdk.AttrVersion)"
	case schema.RoleCreatedAt:
		return "r.Time(ddbsdk.AttrCreatedAt)"
	case schema.RoleUpdatedAt:
		return "r.Time(ddbsdk.AttrUpdatedAt)"
	case schema.RoleTTL:
		if f.Nullable {
			return "r.OptionalEpochSeconds(ddbsdk.AttrTTL)"
		}
		return "r.EpochSeconds(ddbsdk.AttrTTL)"
	}
	switch {
	case f.Type.List && f.Nullable:
		return fmt.Sprintf("ddbsdk.Deref(ddbsdk.ReadOptional[%s](r, %s))", value, col)
	case f.Type.List:
		return fmt.Sprintf("ddbsdk.ReadRequired[%s](r, %s)", value, col)
	case f.Type.Scalar.IsTime() && f.Nullable:
		return fmt.Sprintf("r.OptionalTime(%s)", col)
	case f.Type.Scalar.IsTime():
		return fmt.Sprintf("r.Time(%s)", col)
	case f.Type.Scalar == schema.ScalarEnum && f.Nullable:
		return fmt.Sprintf("ddbsdk.ReadOptionalEnum(r, %s, %s.Valid)", col, f.Type.Enum)
	case f.Type.Scalar == schema.ScalarEnum:
		return fmt.Sprintf("ddbsdk.ReadEnum(r, %s, %s.Valid)", col, f.Type.Enum)
	case f.Nullable:
		return fmt.Sprintf("ddbsdk.ReadOptional[%s](r, %s)", baseType(value), col)
	}
	return fmt.Sprintf("ddbsdk.ReadRequired[%s](r, %s)", value, col)
}

// write is the statement storing a user or computed column into attrs.
// Managed columns and the TTL field are written by the runtime.
func (b *builder) write(f schema.Field, fd fieldData) string {
	if f.Role != schema.RoleNone {
		return ""
	}
	col := strconv.Quote(f.Column)
	src := "r." + fd.GoName
	if f.Compute != "" {
		src = computedVar(f)
	}
	conv := func(v string) string {
		switch {
		case f.Type.List && f.Nullable:
			return v
		case f.Type.List:
			return "ddbsdk.NonNil(" + v + ")"
		case f.Type.Scalar.IsTime():
			return v + ".UnixMilli()"
		case f.Type.Scalar == schema.ScalarEnum:
			return "string(" + v + ")"
		}
		return v
	}

	var stmt string
	switch {
	case f.Type.List && f.Nullable:
		stmt = fmt.Sprintf("if %s != nil {\n\tattrs[%s] = %s\n}", src, col, src)
	case f.Nullable && f.Type.Scalar.IsTime():
		stmt = fmt.Sprintf("if %s != nil {\n\tattrs[%s] = %s\n}", src, col, conv(src))
	case f.Nullable:
		stmt = fmt.Sprintf("if %s != nil {\n\tattrs[%s] = %s\n}", src, col, conv("*"+src))
	default:
		stmt = fmt.Sprintf("attrs[%s] = %s", col, conv(src))
	}
	if f.Compute == "" {
		return stmt
	}
	return fmt.Sprintf("%s, err := r.%s.Get()\nif err != nil {\n\treturn nil, fmt.Errorf(\"compute %s: %%w\", err)\n}\n%s",
		src, fd.GoName, f.Name, stmt)
}

// computedVar is the local holding a resolved computed value while the
// attributes of a record are assembled.
func computedVar(f schema.Field) string {
	return strings.TrimSuffix(unexportedName(f.Name), "_") + "Value"
}

func durationExpr(d time.Duration) string {
	switch {
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d * 24 * time.Hour", d/(24*time.Hour))
	case d%time.Hour == 0:
		return fmt.Sprintf("%d * time.Hour", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d * time.Minute", d/time.Minute)
	}
	return fmt.Sprintf("%d * time.Second", d/time.Second)
}

// sourceKey maps every key field of the target to the expression reading it
// from a source record s. Attr holds the Go field name.
func sourceKey(source, target modelData) []attrData {
	nullable := map[string]bool{}
	for _, f := range source.Fields {
		nullable[f.GoName] = f.Nullable
	}
	out := make([]attrData, len(target.KeyFields))
	for i, f := range target.KeyFields {
		expr := "s." + f.GoName
		if nullable[f.GoName] {
			expr = "ddbsdk.Deref(" + expr + ")"
		}
		out[i] = attrData{Attr: f.GoName, Expr: expr}
	}
	return out
}

// enumsOf collects the enum types referenced by the models, sorted by name.
// Values come from the SDL declaration order.
func enumsOf(tables []schema.Table, values func(name string) []string) []enumData {
	seen := map[string]bool{}
	var out []enumData
	for _, t := range tables {
		for _, m := range t.Models {
			for _, f := range m.Fields {
				if f.Type.Scalar != schema.ScalarEnum || seen[f.Type.Enum] {
					continue
				}
				seen[f.Type.Enum] = true
				e := enumData{Name: f.Type.Enum}
				for _, v := range values(f.Type.Enum) {
					e.Values = append(e.Values, enumValue{
						Const: f.Type.Enum + exportedName(strings.ToLower(v)),
						Value: v,
					})
				}
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
