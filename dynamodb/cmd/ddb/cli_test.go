package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `
type Product implements Model
  @simpleKey(fields: ["sku"], prefix: "PRODUCT")
  @table(name: "catalog") {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
  sku: String!
  title: String!
}
`

const catalogConfig = `
schema: ["*.graphql"]
output:
  dir: data
  package: data
  importPath: example.com/shop/data
`

func writeProject(t *testing.T, sdlSource string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.graphql"), []byte(sdlSource), 0o644))
	path := filepath.Join(dir, "ddbgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogConfig), 0o644))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ddb version "+version+"\n", out)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, _, err := run(t, "validate", "--config", writeProject(t, catalog))
		require.NoError(t, err)
		assert.Equal(t, "ok: 1 tables, 1 models\n", out)
	})

	t.Run("lists every error", func(t *testing.T) {
		broken := catalog + `
type Orphan implements Model @table(name: "catalog") {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
}
`
		_, errOut, err := run(t, "validate", "--config", writeProject(t, broken))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema errors")
		assert.Contains(t, errOut, "Orphan")
	})
}

func TestGen(t *testing.T) {
	t.Run("dry run writes nothing", func(t *testing.T) {
		path := writeProject(t, catalog)
		out, _, err := run(t, "gen", "--dry-run", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "data/product_gen.go\n")
		assert.Contains(t, out, "data/schema_dynamodb.yaml\n")

		_, statErr := os.Stat(filepath.Join(filepath.Dir(path), "data"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("flags override the output", func(t *testing.T) {
		path := writeProject(t, catalog)
		out, _, err := run(t, "gen", "--config", path, "--out", "gen", "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, out, "gen/tables_gen.go\n")

		src, err := os.ReadFile(filepath.Join(filepath.Dir(path), "gen", "product_gen.go"))
		require.NoError(t, err)
		assert.Contains(t, string(src), "func (c *Client) CreateProduct(")
	})

	t.Run("unknown log format", func(t *testing.T) {
		_, _, err := run(t, "gen", "--config", writeProject(t, catalog), "--log-format", "xml")
		require.Error(t, err)
	})
}

func TestSchema(t *testing.T) {
	path := writeProject(t, catalog)

	out, _, err := run(t, "schema", "--config", path, "--format", "json")
	require.NoError(t, err)
	var doc schema.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, "catalog", doc.Tables[0].Name)
	assert.Equal(t, "PRODUCT#{sku}", doc.Tables[0].Entities[0].PartitionKeyPattern)

	out, _, err = run(t, "schema", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Generated by ddbgen. DO NOT EDIT.")
	assert.Contains(t, out, "name: catalog")
}
