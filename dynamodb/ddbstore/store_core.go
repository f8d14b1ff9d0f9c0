// Package ddbstore is a local DynamoDB backed by BadgerDB. It implements the
// item and query operations the generated data layer issues, maintains
// secondary indexes in the same transaction as the base item, and can record
// a change stream for driving CDC handlers in tests.
package ddbstore

import (
	"fmt"
	"sync"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
)

var _ ddbsdk.AWSDynamoClientV2 = (*Store)(nil)

// Store is a DynamoDB-compatible store backed by BadgerDB.
type Store struct {
	db     *badger.DB
	tables map[string]*tableSchema

	// writes are serialized so stream records are appended in commit order.
	writeMu sync.Mutex
	stream  *stream
}

type tableSchema struct {
	definition table.TableDefinition
	indexes    map[string]*indexSchema
}

func (t *tableSchema) encodeKey(pk table.PrimaryKey) ([]byte, error) {
	return encodeBadgerKey(t.definition.Name, "", pk)
}

// indexSchema covers both GSIs and LSIs. An LSI is an index whose partition
// key is the table's partition key.
type indexSchema struct {
	tableName  string
	name       string
	keys       table.PrimaryKeyDefinition
	projection table.ProjectionKind
	nonKey     []string
	local      bool
}

// keyAttributes are the attributes every projection of the index carries,
// plus the non-key attributes of an INCLUDE projection.
func (i *indexSchema) keyAttributes(base table.PrimaryKeyDefinition) []string {
	attrs := append(base.Attributes(), i.keys.Attributes()...)
	return append(attrs, i.nonKey...)
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled. A logrus.FieldLogger
	// satisfies the interface.
	Logger badger.Logger
}

// New creates a new BadgerDB-backed DynamoDB store.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	tables := make(map[string]*tableSchema)
	for _, def := range defs {
		if _, dup := tables[def.Name]; dup {
			return nil, fmt.Errorf("table %s defined twice", def.Name)
		}
		schema := &tableSchema{
			definition: def,
			indexes:    make(map[string]*indexSchema),
		}
		for _, gsi := range def.GSIs {
			schema.indexes[gsi.Name] = &indexSchema{
				tableName:  def.Name,
				name:       gsi.Name,
				keys:       gsi.KeyDefinitions,
				projection: gsi.Projection,
				nonKey:     gsi.NonKeyAttributes,
			}
		}
		for _, lsi := range def.LSIs {
			if _, dup := schema.indexes[lsi.Name]; dup {
				return nil, fmt.Errorf("table %s: index %s defined twice", def.Name, lsi.Name)
			}
			if lsi.KeyDefinitions.PartitionKey != def.KeyDefinitions.PartitionKey {
				return nil, fmt.Errorf("table %s: LSI %s must share the table partition key", def.Name, lsi.Name)
			}
			schema.indexes[lsi.Name] = &indexSchema{
				tableName:  def.Name,
				name:       lsi.Name,
				keys:       lsi.KeyDefinitions,
				projection: lsi.Projection,
				nonKey:     lsi.NonKeyAttributes,
				local:      true,
			}
		}
		tables[def.Name] = schema
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	return &Store{
		db:     db,
		tables: tables,
		stream: &stream{},
	}, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(tableName *string) (*tableSchema, error) {
	if tableName == nil {
		return nil, fmt.Errorf("table name is required")
	}
	schema, ok := s.tables[*tableName]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", *tableName)
	}
	return schema, nil
}

func (t *tableSchema) getIndex(indexName *string) (*indexSchema, error) {
	if indexName == nil || *indexName == "" {
		return nil, nil
	}
	idx, ok := t.indexes[*indexName]
	if !ok {
		return nil, fmt.Errorf("index not found: %s on table %s", *indexName, t.definition.Name)
	}
	return idx, nil
}
