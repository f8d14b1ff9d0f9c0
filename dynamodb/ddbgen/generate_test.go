package ddbgen

import (
	"errors"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/acksell/ddbsdl/dynamodb/logging"
	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/acksell/ddbsdl/dynamodb/sdl"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const billing = `
enum Vendor {
  GITHUB
  GITLAB
}

type Subscription implements Model
  @compositeKey(partitionFields: ["externalId"], partitionPrefix: "SUB", sortFields: ["vendor"])
  @table(name: "main")
  @cdc(event: UPSERT, handler: "example.com/app/handlers/subscription", produces: "Account") {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
  externalId: String!
  vendor: Vendor!
  planName: String!
}

type Account implements Model
  @compositeKey(partitionFields: ["externalId"], partitionPrefix: "ACCOUNT", sortFields: ["vendor"])
  @table(name: "main")
  @gsi(name: "byPlan", partitionFields: ["planName"], partitionPrefix: "PLAN", projection: KEYS_ONLY) {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
  externalId: String!
  vendor: Vendor!
  planName: String!
  displayName: String! @computed(fn: "accountDisplayName")
}

type UserSession implements Model
  @simpleKey(fields: ["token"], prefix: "SESSION")
  @table(name: "sessions")
  @cdc(event: REMOVE, handler: "example.com/app/handlers/session") {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
  token: String!
  expiresAt: DateTime @ttl
}
`

const projectConfig = `
output:
  importPath: example.com/app/data
infra:
  eventSourcePrefix: billing
  memoryMB: 512
defaultHandlerAlarmThresholds:
  coldStarts: 10
`

// writeProject lays out a project with one schema file and returns the
// path of its config file.
func writeProject(t *testing.T, sdlSource, config string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schema"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema", "billing.graphql"), []byte(sdlSource), 0o644))
	path := filepath.Join(dir, ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	return path
}

func loadProject(t *testing.T, sdlSource string) *Config {
	t.Helper()
	cfg, err := LoadConfig(writeProject(t, sdlSource, projectConfig), nil)
	require.NoError(t, err)
	return cfg
}

func relPaths(t *testing.T, cfg *Config, out *Output) []string {
	t.Helper()
	var rel []string
	for _, p := range out.Paths() {
		r, err := filepath.Rel(cfg.Dir, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults and file", func(t *testing.T) {
		path := writeProject(t, billing, projectConfig)
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)

		assert.Equal(t, filepath.Dir(path), cfg.Dir)
		assert.Equal(t, []string{"schema/*.graphql"}, cfg.Schema)
		assert.Equal(t, OutputConfig{Dir: "data", Package: "data", ImportPath: "example.com/app/data"}, cfg.Output)
		assert.Equal(t, "github.com/acksell/ddbsdl", cfg.DependenciesModulePath)
		assert.Equal(t, "billing", cfg.Infra.EventSourcePrefix)
		assert.Equal(t, 512, cfg.Infra.MemoryMB)
		assert.Equal(t, 100, cfg.Infra.BatchSize)
		assert.Equal(t, "infra/template.yaml", cfg.Infra.Template)
		assert.Equal(t, 10, cfg.DefaultHandlerAlarmThresholds.ColdStarts)
		assert.Equal(t, 10000, cfg.DefaultHandlerAlarmThresholds.DurationP99Ms)
		assert.Equal(t, 20, cfg.DefaultDispatcherAlarmThresholds.ColdStarts)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DDBGEN_OUTPUT_PACKAGE", "billing")
		cfg, err := LoadConfig(writeProject(t, billing, projectConfig), nil)
		require.NoError(t, err)
		assert.Equal(t, "billing", cfg.Output.Package)
	})

	t.Run("flags override file", func(t *testing.T) {
		fs := pflag.NewFlagSet("gen", pflag.ContinueOnError)
		RegisterFlags(fs)
		require.NoError(t, fs.Parse([]string{"--out", "gen", "--default-table", "main", "--legacy-empty-key-segments"}))

		cfg, err := LoadConfig(writeProject(t, billing, projectConfig), fs)
		require.NoError(t, err)
		assert.Equal(t, "gen", cfg.Output.Dir)
		assert.Equal(t, "main", cfg.DefaultTable)
		assert.True(t, cfg.LegacyEmptyKeySegmentBehavior)
		assert.Equal(t, "data", cfg.Output.Package)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name   string
			config string
			want   string
		}{
			{"missing import path", "output:\n  dir: data\n", "Output.ImportPath"},
			{"package not an identifier", "output:\n  package: my-data\n  importPath: example.com/app/data\n", "not a Go identifier"},
			{"memory out of range", "output:\n  importPath: example.com/app/data\ninfra:\n  memoryMB: 64\n", "Infra.MemoryMB"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := LoadConfig(writeProject(t, billing, tt.config), nil)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile), nil)
		require.Error(t, err)
	})
}

func TestBuildPackage(t *testing.T) {
	cfg := loadProject(t, billing)
	tables, err := New(cfg, logging.Discard()).Extract()
	require.NoError(t, err)

	data, err := buildPackage(packageInput{
		Package: "data",
		Import:  "example.com/app/data",
		Runtime: "github.com/acksell/ddbsdl",
	}, tables)
	require.NoError(t, err)

	var models []string
	for _, m := range data.Models {
		models = append(models, m.Name)
	}
	assert.Equal(t, []string{"Subscription", "Account", "UserSession"}, models)
	assert.Equal(t, []tableData{
		{Name: "main", GoName: "Main", EnvVar: "DDB_TABLE_MAIN"},
		{Name: "sessions", GoName: "Sessions", EnvVar: "DDB_TABLE_SESSIONS"},
	}, data.Tables)

	require.Len(t, data.Dispatchers, 2)
	assert.Equal(t, "dispatch-main", data.Dispatchers[0].Dir)
	assert.Equal(t, []string{"Subscription"}, data.Dispatchers[0].EntityTypes)
	assert.Equal(t, "dispatch-sessions", data.Dispatchers[1].Dir)

	require.Len(t, data.Triggers, 1)
	assert.Equal(t, "user-session-trigger", data.Triggers[0].Dir)
	assert.Equal(t, "UserSession", data.Triggers[0].Model.Name)

	require.Len(t, data.Enrichers, 1)
	e := data.Enrichers[0]
	assert.Equal(t, "subscription-enricher", e.Dir)
	assert.Equal(t, "Account", e.Target.Name)
	assert.Equal(t, []attrData{
		{Attr: "ExternalID", Expr: "s.ExternalID"},
		{Attr: "Vendor", Expr: "s.Vendor"},
	}, e.KeyFields)

	account := data.Models[1]
	require.Len(t, account.Computed, 1)
	assert.Equal(t, "accountDisplayName", account.Computed[0].Compute)
	assert.Equal(t, "*ddbsdk.Lazy[string]", account.Computed[0].GoType)
	require.Len(t, account.Queries, 2)
	assert.Equal(t, "AccountPrimaryQuery", account.Queries[0].Type)
	assert.Equal(t, "AccountByPlanQuery", account.Queries[1].Type)
	assert.True(t, account.Queries[1].KeysOnly)
	assert.False(t, account.Queries[1].Consistent)
	assert.Equal(t, []string{"byPlan_pk"}, account.RemoveUnset)
	assert.False(t, account.RemovesOptional)

	session := data.Models[2]
	require.NotNil(t, session.TTL)
	assert.Empty(t, session.TTL.Duration)
	assert.False(t, session.HasSortKey)
}

func TestBuildPackage_RemoveUnset(t *testing.T) {
	tests := []struct {
		name     string
		fields   string
		indexes  string
		want     []string
		optional bool
	}{
		{
			name:    "required index field",
			fields:  "region: String!",
			indexes: `@gsi(name: "byRegion", field: "region")`,
			want:    []string{"byRegion_pk"},
		},
		{
			name:     "nullable index field",
			fields:   "region: String",
			indexes:  `@gsi(name: "byRegion", field: "region")`,
			want:     []string{"region", "byRegion_pk"},
			optional: true,
		},
		{
			name:     "nullable field shared by two indexes",
			fields:   "region: String\n  tier: Int",
			indexes:  `@gsi(name: "byRegion", field: "region") @gsi(name: "byTier", partitionFields: ["region"], sortFields: ["tier"])`,
			want:     []string{"region", "byRegion_pk", "byTier_pk", "tier", "byTier_sk"},
			optional: true,
		},
		{
			name:   "nullable field outside any index",
			fields: "region: String",
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := `
type Account implements Model
  @simpleKey(fields: ["externalId"], prefix: "ACCOUNT")
  @table(name: "main") ` + tt.indexes + ` {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
  externalId: String!
  ` + tt.fields + `
}
`
			cfg := loadProject(t, source)
			tables, err := New(cfg, logging.Discard()).Extract()
			require.NoError(t, err)
			data, err := buildPackage(packageInput{
				Package: "data",
				Import:  "example.com/app/data",
				Runtime: "github.com/acksell/ddbsdl",
			}, tables)
			require.NoError(t, err)
			require.Len(t, data.Models, 1)

			account := data.Models[0]
			assert.Equal(t, tt.want, account.RemoveUnset)
			assert.Equal(t, tt.optional, account.RemovesOptional)
		})
	}
}

func TestBuild(t *testing.T) {
	cfg := loadProject(t, billing)
	out, err := New(cfg, logging.Discard()).Build()
	require.NoError(t, err)

	want := []string{
		"data/account_gen.go",
		"data/cdc_gen.go",
		"data/cmd/dispatch-main/main.go",
		"data/cmd/dispatch-sessions/main.go",
		"data/cmd/subscription-enricher/main.go",
		"data/cmd/user-session-trigger/main.go",
		"data/enums_gen.go",
		"data/infra/template.yaml",
		"data/schema_dynamodb.yaml",
		"data/subscription_gen.go",
		"data/tables_gen.go",
		"data/user_session_gen.go",
	}
	sort.Strings(want)
	assert.Equal(t, want, relPaths(t, cfg, out))

	file := func(name string) string {
		return string(out.Files[filepath.Join(cfg.Dir, filepath.FromSlash(name))])
	}

	t.Run("client", func(t *testing.T) {
		src := file("data/tables_gen.go")
		assert.Contains(t, src, "// Code generated by ddbgen. DO NOT EDIT.")
		assert.Contains(t, src, "package data")
		assert.Contains(t, src, `"DDB_TABLE_SESSIONS"`)
		assert.Contains(t, src, "func TableNamesFromEnv() (TableNames, error)")
		assert.Contains(t, src, "func NewClient(db ddbsdk.AWSDynamoClientV2, tables TableNames, opts ...Option) *Client")
	})

	t.Run("enums", func(t *testing.T) {
		src := file("data/enums_gen.go")
		assert.Contains(t, src, "type Vendor string")
		assert.Contains(t, src, `= "GITLAB"`)
		assert.Contains(t, src, "func (v Vendor) Valid() bool")
	})

	t.Run("model", func(t *testing.T) {
		src := file("data/account_gen.go")
		assert.Contains(t, src, `const AccountEntityType = "Account"`)
		assert.Contains(t, src, `"github.com/acksell/ddbsdl/dynamodb/ddbsdk"`)
		assert.Contains(t, src, "func (c *Client) CreateAccount(ctx context.Context, in *CreateAccountInput) (*ddbsdk.Result[Account], error)")
		assert.Contains(t, src, "func (c *Client) UpdateAccount(ctx context.Context, in *UpdateAccountInput) (*ddbsdk.Result[Account], error)")
		assert.Contains(t, src, "func (c *Client) QueryAccountKeys(")
		assert.Contains(t, src, "func UnmarshallAccount(item ddbsdk.Item) (*Account, error)")
		assert.Contains(t, src, "return accountDisplayName(r)")

		session := file("data/user_session_gen.go")
		assert.Contains(t, session, "ExpiresAt:")
		assert.Contains(t, session, "func (c *Client) TouchUserSession(")
		assert.NotContains(t, session, "QueryUserSessionKeys")
	})

	t.Run("cdc", func(t *testing.T) {
		src := file("data/cdc_gen.go")
		assert.Contains(t, src, "func NewMainDispatcher(pub cdc.Publisher, log logrus.FieldLogger) *cdc.Dispatcher")
		assert.Contains(t, src, `SourcePrefix: "billing"`)
		assert.Contains(t, src, "func NewUserSessionTrigger(")
		assert.Contains(t, src, "func (c *Client) NewSubscriptionEnricher(")
	})

	t.Run("mains", func(t *testing.T) {
		trigger := file("data/cmd/user-session-trigger/main.go")
		assert.Contains(t, trigger, "package main")
		assert.Contains(t, trigger, `"example.com/app/handlers/session"`)
		assert.Contains(t, trigger, "handler.Handle(ctx, client, change)")

		enricher := file("data/cmd/subscription-enricher/main.go")
		assert.Contains(t, enricher, "client.NewSubscriptionEnricher(handler.Create, handler.Update, log)")

		dispatcher := file("data/cmd/dispatch-sessions/main.go")
		assert.Contains(t, dispatcher, "data.NewSessionsDispatcher(clients.EventBridge, log)")
	})

	t.Run("schema dump", func(t *testing.T) {
		var doc schema.Document
		require.NoError(t, yaml.Unmarshal(out.Files[filepath.Join(cfg.Dir, "data", SchemaFile)], &doc))
		require.Len(t, doc.Tables, 2)
		assert.Equal(t, "main", doc.Tables[0].Name)
		assert.Len(t, doc.Tables[0].Entities, 2)
	})

	t.Run("template", func(t *testing.T) {
		src := file("data/infra/template.yaml")
		assert.Contains(t, src, "AWSTemplateFormatVersion")
		assert.Contains(t, src, "billing.sessions")
	})
}

func TestDocument(t *testing.T) {
	cfg := loadProject(t, billing)
	doc, err := New(cfg, logging.Discard()).Document()
	require.NoError(t, err)
	require.Len(t, doc.Tables, 2)

	main := doc.Tables[0]
	assert.Equal(t, schema.KeyDef{Name: "pk", Kind: "S"}, main.PartitionKey)
	require.NotNil(t, main.SortKey)
	assert.Equal(t, "sk", main.SortKey.Name)
	assert.True(t, main.Stream)
	require.Len(t, main.GSIs, 1)
	assert.Equal(t, "byPlan", main.GSIs[0].Name)
	assert.Equal(t, "byPlan_pk", main.GSIs[0].PartitionKey.Name)
	assert.Equal(t, "KEYS_ONLY", main.GSIs[0].Projection)

	sub := main.Entities[0]
	assert.Equal(t, "Subscription", sub.Type)
	assert.Equal(t, "SUB#{externalId}", sub.PartitionKeyPattern)
	assert.Equal(t, "{vendor}", sub.SortKeyPattern)
	require.NotNil(t, sub.CDC)
	assert.Equal(t, &schema.CDCDoc{
		Kind:     "enricher",
		Event:    "UPSERT",
		Target:   "Account",
		Handler:  "example.com/app/handlers/subscription",
		Patterns: []string{"Subscription.INSERT", "Subscription.MODIFY"},
	}, sub.CDC)

	account := main.Entities[1]
	assert.Equal(t, []schema.IndexMapping{{Index: "byPlan", PartitionPattern: "PLAN#{planName}"}}, account.IndexMappings)

	sessions := doc.Tables[1]
	assert.Nil(t, sessions.SortKey)
	assert.Equal(t, "_ttl", sessions.TimeToLiveAttribute)
	assert.Equal(t, "SESSION#{token}", sessions.Entities[0].PartitionKeyPattern)
	assert.Equal(t, "expiresAt", sessions.Entities[0].TTL)
}

func TestGenerate(t *testing.T) {
	t.Run("writes every file", func(t *testing.T) {
		cfg := loadProject(t, billing)
		out, err := New(cfg, logging.Discard()).Generate()
		require.NoError(t, err)

		for path, src := range out.Files {
			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, src, got, path)
		}
		leftovers, err := filepath.Glob(filepath.Join(cfg.Dir, "data", ".ddbgen-*"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("schema errors write nothing", func(t *testing.T) {
		broken := billing + `
type Orphan implements Model @table(name: "main") {
  id: ID!
  version: Int!
  createdAt: DateTime!
  updatedAt: DateTime!
  name: String!
}
`
		cfg := loadProject(t, broken)
		_, err := New(cfg, logging.Discard()).Generate()
		require.Error(t, err)
		var errs sdl.SchemaErrors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, "Orphan", errs[0].Model)

		_, statErr := os.Stat(filepath.Join(cfg.Dir, "data"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestExampleProject(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("example", ConfigFile), nil)
	require.NoError(t, err)
	out, err := New(cfg, logging.Discard()).Build()
	require.NoError(t, err)

	committed := []string{
		"data/account_gen.go",
		"data/cdc_gen.go",
		"data/cmd/account-trigger/main.go",
		"data/cmd/dispatch-main/main.go",
		"data/cmd/subscription-enricher/main.go",
		"data/enums_gen.go",
		"data/subscription_gen.go",
		"data/tables_gen.go",
	}
	paths := relPaths(t, cfg, out)
	for _, p := range committed {
		t.Run(p, func(t *testing.T) {
			require.Contains(t, paths, p)
			abs := filepath.Join(cfg.Dir, filepath.FromSlash(p))
			src, err := os.ReadFile(abs)
			require.NoError(t, err, "example is missing %s; run ddb gen in the example directory", p)
			src, err = format.Source(src)
			require.NoError(t, err)
			assert.Equal(t, string(out.Files[abs]), string(src), "%s is stale; run ddb gen in the example directory", p)
		})
	}
	assert.Contains(t, paths, "data/infra/template.yaml")
	assert.Contains(t, paths, "data/schema_dynamodb.yaml")
	assert.Len(t, paths, len(committed)+2)
}
