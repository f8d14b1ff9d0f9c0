// Package index derives the concrete key templates of a model: its primary
// key and one projection per secondary index.
//
// Derivation is a pure function of the extracted schema. The generators
// print the templates, they never re-derive them.
package index

import (
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/index/keys"
	"github.com/acksell/ddbsdl/dynamodb/schema"
)

// PrimaryIndex holds every key template of one model.
//
// Example, for a model keyed @compositeKey(partitionFields: ["externalId"],
// partitionPrefix: "SUB", sortFields: ["vendor"]):
//
//	Partition: SUB#{externalId}    (attribute pk)
//	Sort:      {vendor}            (attribute sk)
type PrimaryIndex struct {
	Model     string
	Partition keys.Template
	// Sort is nil for models in a table with a simple primary key.
	Sort      *keys.Template
	Secondary []SecondaryIndex
}

// Options are the generation-time switches that change key rendering.
type Options struct {
	// PadEmptySegments keeps empty key segments in place
	// (legacyEmptyKeySegmentBehavior).
	PadEmptySegments bool
}

// Derive builds the key templates of a model.
func Derive(m schema.Model, opts Options) (PrimaryIndex, error) {
	pi := PrimaryIndex{Model: m.Name}
	var err error
	switch pk := m.PrimaryKey.(type) {
	case schema.SimpleKey:
		pi.Partition, err = derive(schema.AttrPartitionKey, pk.Partition, m, opts)
		if err != nil {
			return PrimaryIndex{}, fmt.Errorf("model %s: partition key: %w", m.Name, err)
		}
	case schema.CompositeKey:
		pi.Partition, err = derive(schema.AttrPartitionKey, pk.Partition, m, opts)
		if err != nil {
			return PrimaryIndex{}, fmt.Errorf("model %s: partition key: %w", m.Name, err)
		}
		sort, err := derive(schema.AttrSortKey, pk.Sort, m, opts)
		if err != nil {
			return PrimaryIndex{}, fmt.Errorf("model %s: sort key: %w", m.Name, err)
		}
		pi.Sort = &sort
	default:
		return PrimaryIndex{}, fmt.Errorf("model %s: no primary key", m.Name)
	}

	for _, idx := range m.Indexes {
		si, err := deriveSecondary(idx, pi, m, opts)
		if err != nil {
			return PrimaryIndex{}, fmt.Errorf("model %s: index %s: %w", m.Name, idx.IndexName(), err)
		}
		pi.Secondary = append(pi.Secondary, si)
	}
	return pi, nil
}

func derive(attr string, kf schema.KeyFields, m schema.Model, opts Options) (keys.Template, error) {
	t, err := keys.Derive(attr, kf.Prefix, kf.Fields, m.Field)
	if err != nil {
		return keys.Template{}, err
	}
	t.Pad = opts.PadEmptySegments
	return t, nil
}

// SecondaryIndex returns the secondary index with the given name.
func (pi PrimaryIndex) SecondaryIndex(name string) (SecondaryIndex, bool) {
	for _, si := range pi.Secondary {
		if si.Name == name {
			return si, true
		}
	}
	return SecondaryIndex{}, false
}

// Templates lists every template written on create, primary keys first.
func (pi PrimaryIndex) Templates() []keys.Template {
	out := []keys.Template{pi.Partition}
	if pi.Sort != nil {
		out = append(out, *pi.Sort)
	}
	return append(out, pi.IndexTemplates()...)
}

// IndexTemplates lists the templates of the secondary index attributes. An
// LSI contributes only its sort key, its partition is the table's.
func (pi PrimaryIndex) IndexTemplates() []keys.Template {
	var out []keys.Template
	for _, si := range pi.Secondary {
		if !si.Local {
			out = append(out, si.Partition)
		}
		if si.Sort != nil {
			out = append(out, *si.Sort)
		}
	}
	return out
}

// KeepExisting lists the index attributes derived from createdAt. They are
// written once and never recomputed, because the write time of a later write
// is not the record's creation time.
func (pi PrimaryIndex) KeepExisting() []string {
	var out []string
	for _, t := range pi.IndexTemplates() {
		if t.UsesRole(schema.RoleCreatedAt) {
			out = append(out, t.Attr)
		}
	}
	return out
}
