package index

import (
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/index/keys"
	"github.com/acksell/ddbsdl/dynamodb/schema"
)

// SecondaryIndex is the projection of a model into one GSI or LSI.
//
// A GSI has its own partition and optional sort attribute (<name>_pk,
// <name>_sk). An LSI shares the base partition key and adds <name>_sk.
type SecondaryIndex struct {
	Name       string
	Local      bool
	Projection schema.Projection
	Partition  keys.Template
	Sort       *keys.Template
}

// PartitionAttr is the physical attribute queried for the partition value.
func (si SecondaryIndex) PartitionAttr() string {
	return si.Partition.Attr
}

// SortAttr is empty when the index has no sort key.
func (si SecondaryIndex) SortAttr() string {
	if si.Sort == nil {
		return ""
	}
	return si.Sort.Attr
}

func deriveSecondary(idx schema.SecondaryIndex, pi PrimaryIndex, m schema.Model, opts Options) (SecondaryIndex, error) {
	si := SecondaryIndex{Name: idx.IndexName(), Projection: idx.IndexProjection()}
	switch x := idx.(type) {
	case schema.GSI:
		p, err := derive(schema.IndexPartitionAttr(x.Name), x.Partition, m, opts)
		if err != nil {
			return SecondaryIndex{}, fmt.Errorf("partition key: %w", err)
		}
		si.Partition = p
		if x.Sort != nil {
			s, err := derive(schema.IndexSortAttr(x.Name), *x.Sort, m, opts)
			if err != nil {
				return SecondaryIndex{}, fmt.Errorf("sort key: %w", err)
			}
			si.Sort = &s
		}
	case schema.LSI:
		if pi.Sort == nil {
			return SecondaryIndex{}, fmt.Errorf("local index on a table without a sort key")
		}
		si.Local = true
		si.Partition = pi.Partition
		s, err := derive(schema.IndexSortAttr(x.Name), x.Sort, m, opts)
		if err != nil {
			return SecondaryIndex{}, fmt.Errorf("sort key: %w", err)
		}
		si.Sort = &s
	default:
		return SecondaryIndex{}, fmt.Errorf("unknown index kind %T", idx)
	}

	if !si.Local {
		if err := checkCreatedAt(si.Partition, m); err != nil {
			return SecondaryIndex{}, err
		}
	}
	if si.Sort != nil {
		if err := checkCreatedAt(*si.Sort, m); err != nil {
			return SecondaryIndex{}, err
		}
	}
	return si, nil
}

// checkCreatedAt rejects templates mixing createdAt with fields that can
// change after creation. Extraction reports the same conflict with its
// position, this covers models built by hand.
func checkCreatedAt(t keys.Template, m schema.Model) error {
	if name := m.CreatedAtConflict(t.Fields()); name != "" {
		return fmt.Errorf("key %s combines createdAt with %q, which is not a primary key field", t.Attr, name)
	}
	return nil
}
