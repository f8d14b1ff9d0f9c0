// Package ddbgen compiles an annotated GraphQL SDL into a typed DynamoDB
// data layer and its change data capture units.
//
// # Installation
//
//	go install github.com/acksell/ddbsdl/dynamodb/cmd/ddb@latest
//
// # Usage
//
// Describe the stored types in SDL:
//
//	type Subscription implements Model
//	    @compositeKey(partitionFields: ["externalId"], partitionPrefix: "SUB", sortFields: ["vendor"])
//	    @cdc(event: UPSERT, produces: "Account", handler: "example.com/billing/handlers/subscription") {
//	  id: ID!
//	  externalId: String!
//	  vendor: Vendor!
//	  version: Int!
//	  ...
//	}
//
// and point ddbgen.yaml at it:
//
//	schema: ["schema/*.graphql"]
//	output:
//	  dir: data
//	  package: data
//	  importPath: example.com/billing/data
//
// Running
//
//	ddb gen
//
// writes into output.dir:
//
//   - tables_gen.go: TableNames, the Client and its options
//   - <model>_gen.go: the record type, its key, inputs, CRUD operations,
//     queries and marshalling
//   - enums_gen.go: one string type per SDL enum
//   - cdc_gen.go: dispatcher, trigger and enricher constructors
//   - cmd/<unit>/main.go: one Lambda entry point per CDC unit
//   - schema_dynamodb.yaml: the tables and key patterns
//   - the CloudFormation template at infra.template
//
// Generation is all or nothing: when the schema has errors, or any output
// does not format, no file is written.
package ddbgen
