package sdl

import (
	"github.com/acksell/ddbsdl/dynamodb/schema"
)

// assemble groups models by table, in order of first appearance, and merges
// their table level settings.
func (x *extractor) assemble(models []modelDef) []schema.Table {
	var tables []schema.Table
	byName := map[string]int{}
	for _, md := range models {
		m := md.model
		i, ok := byName[m.Table]
		if !ok {
			i = len(tables)
			byName[m.Table] = i
			tables = append(tables, schema.Table{Name: m.Table, KeyShape: m.PrimaryKey.Shape()})
		}
		t := &tables[i]

		if shape := m.PrimaryKey.Shape(); shape != t.KeyShape {
			x.fail(md.def.Position, m.Name, "", "table %s has a %s primary key, but %s declares a %s one", t.Name, t.KeyShape, m.Name, shape)
			continue
		}
		for _, idx := range m.Indexes {
			x.addIndex(md, t, idx)
		}
		t.TTL = t.TTL || m.TTL != nil
		t.Stream = t.Stream || m.CDC != nil
		t.PointInTimeRecovery = t.PointInTimeRecovery || md.pitr
		t.Models = append(t.Models, m)
	}
	return tables
}

func (x *extractor) addIndex(md modelDef, t *schema.Table, idx schema.SecondaryIndex) {
	def := schema.IndexDefinition{Name: idx.IndexName(), Projection: idx.IndexProjection()}
	var list *[]schema.IndexDefinition
	switch i := idx.(type) {
	case schema.GSI:
		def.PartitionAttr = schema.IndexPartitionAttr(i.Name)
		if i.Sort != nil {
			def.SortAttr = schema.IndexSortAttr(i.Name)
		}
		list = &t.GSIs
	case schema.LSI:
		def.PartitionAttr = schema.AttrPartitionKey
		def.SortAttr = schema.IndexSortAttr(i.Name)
		list = &t.LSIs
	}

	for _, existing := range append(append([]schema.IndexDefinition(nil), t.GSIs...), t.LSIs...) {
		if existing.Name != def.Name {
			continue
		}
		if existing != def {
			x.fail(md.def.Position, md.model.Name, "", "index %s of table %s is declared with a different shape or projection by another model", def.Name, t.Name)
		}
		return
	}
	*list = append(*list, def)
}
