package ddbgen

import (
	"bytes"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/index"
	"github.com/acksell/ddbsdl/dynamodb/index/keys"
	"github.com/acksell/ddbsdl/dynamodb/schema"
	"gopkg.in/yaml.v3"
)

// SchemaFile is the name of the schema dump written next to the generated
// package.
const SchemaFile = "schema_dynamodb.yaml"

// Document describes the extracted tables with every key printed in the
// {field} pattern syntax.
func Document(tables []schema.Table, opts index.Options) (schema.Document, error) {
	var doc schema.Document
	var p keys.PatternPrinter
	for _, t := range tables {
		td := schema.TableDocument{
			Name:         t.Name,
			PartitionKey: schema.KeyDef{Name: schema.AttrPartitionKey, Kind: "S"},
			Stream:       t.Stream,
		}
		if t.HasSortKey() {
			td.SortKey = &schema.KeyDef{Name: schema.AttrSortKey, Kind: "S"}
		}
		if t.TTL {
			td.TimeToLiveAttribute = schema.AttrTTL
		}
		for _, idx := range t.GSIs {
			td.GSIs = append(td.GSIs, indexDoc(idx))
		}
		for _, idx := range t.LSIs {
			td.LSIs = append(td.LSIs, indexDoc(idx))
		}

		for _, m := range t.Models {
			pi, err := index.Derive(m, opts)
			if err != nil {
				return schema.Document{}, err
			}
			e := schema.EntityDoc{
				Type:                m.Name,
				PartitionKeyPattern: p.Key(pi.Partition),
				ConsistentRead:      m.ConsistentRead,
			}
			if pi.Sort != nil {
				e.SortKeyPattern = p.Key(*pi.Sort)
			}
			for _, f := range m.Fields {
				if f.Column == "" {
					continue
				}
				e.Fields = append(e.Fields, schema.FieldDoc{
					Name:     f.Name,
					Column:   f.Column,
					Type:     f.Type.String(),
					Nullable: f.Nullable,
					Computed: f.Compute,
				})
			}
			for _, si := range pi.Secondary {
				mapping := schema.IndexMapping{Index: si.Name}
				if !si.Local {
					mapping.PartitionPattern = p.Key(si.Partition)
				}
				if si.Sort != nil {
					mapping.SortPattern = p.Key(*si.Sort)
				}
				e.IndexMappings = append(e.IndexMappings, mapping)
			}
			if m.TTL != nil {
				e.TTL = m.TTL.Field
				if m.TTL.Duration > 0 {
					e.TTL += " +" + m.TTL.Duration.String()
				}
			}
			if m.CDC != nil {
				e.CDC = cdcDoc(m.Name, m.CDC)
			}
			td.Entities = append(td.Entities, e)
		}
		doc.Tables = append(doc.Tables, td)
	}
	return doc, nil
}

func indexDoc(idx schema.IndexDefinition) schema.IndexDoc {
	d := schema.IndexDoc{
		Name:         idx.Name,
		PartitionKey: schema.KeyDef{Name: idx.PartitionAttr, Kind: "S"},
		Projection:   string(idx.Projection),
	}
	if idx.SortAttr != "" {
		d.SortKey = &schema.KeyDef{Name: idx.SortAttr, Kind: "S"}
	}
	return d
}

func cdcDoc(model string, c schema.ChangeDataCaptureConfig) *schema.CDCDoc {
	d := cdcOf(c)
	doc := &schema.CDCDoc{
		Kind:    d.Kind,
		Event:   d.Event,
		Target:  d.Target,
		Handler: d.Handler,
	}
	for _, e := range d.Events {
		doc.Patterns = append(doc.Patterns, model+"."+e)
	}
	return doc
}

// MarshalDocument prints a document as the contents of SchemaFile.
func MarshalDocument(doc schema.Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Generated by ddbgen. DO NOT EDIT.\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return buf.Bytes(), nil
}
