package ddbstore

import (
	"bytes"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// mutation computes the new state of an item from its current one. old is
// nil when no item is stored under the key. Returning a nil item deletes it.
type mutation func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error)

type writeResult struct {
	old, new    map[string]types.AttributeValue
	indexWrites int
}

func (r *writeResult) units() float64 {
	return writeUnits(max(itemSize(r.old), itemSize(r.new)), r.indexWrites)
}

// write applies a mutation to the item under pk, maintaining every index in
// the same transaction and recording a stream record once committed.
func (s *Store) write(t *tableSchema, pk table.PrimaryKey, mutate mutation) (*writeResult, error) {
	key, err := t.encodeKey(pk)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := &writeResult{}
	err = s.db.Update(func(txn *badger.Txn) error {
		old, err := getItem(txn, key)
		if err != nil {
			return err
		}
		item, err := mutate(old)
		if err != nil {
			return err
		}
		res.old, res.new = old, item

		if item == nil {
			if old == nil {
				return nil
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		} else {
			itemBytes, err := SerializeItem(item)
			if err != nil {
				return fmt.Errorf("serialize item: %w", err)
			}
			if err := txn.Set(key, itemBytes); err != nil {
				return err
			}
		}

		for _, idx := range t.indexes {
			n, err := s.maintainIndex(txn, t, idx, pk, old, item)
			if err != nil {
				return fmt.Errorf("update index %s: %w", idx.name, err)
			}
			res.indexWrites += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t.definition.StreamEnabled {
		s.stream.record(t.definition, pk.Item(), res.old, res.new)
	}
	return res, nil
}

// maintainIndex moves the index entry of one base item. Items missing an
// index key attribute are absent from the index.
func (s *Store) maintainIndex(txn *badger.Txn, t *tableSchema, idx *indexSchema, base table.PrimaryKey, old, item map[string]types.AttributeValue) (int, error) {
	oldKey, err := indexEntryKey(idx, base, old)
	if err != nil {
		return 0, err
	}
	newKey, err := indexEntryKey(idx, base, item)
	if err != nil {
		return 0, err
	}

	writes := 0
	if oldKey != nil && !bytes.Equal(oldKey, newKey) {
		if err := txn.Delete(oldKey); err != nil {
			return 0, err
		}
		writes++
	}
	if newKey != nil {
		projected := idx.projection.Project(item, idx.keyAttributes(t.definition.KeyDefinitions)...)
		entry, err := SerializeItem(projected)
		if err != nil {
			return 0, fmt.Errorf("serialize index entry: %w", err)
		}
		if err := txn.Set(newKey, entry); err != nil {
			return 0, err
		}
		writes++
	}
	return writes, nil
}

func indexEntryKey(idx *indexSchema, base table.PrimaryKey, item map[string]types.AttributeValue) ([]byte, error) {
	if item == nil || !idx.keys.HasKey(item) {
		return nil, nil
	}
	indexKey, err := idx.keys.ExtractPrimaryKey(item)
	if err != nil {
		return nil, err
	}
	return encodeIndexKey(idx, indexKey, base)
}
