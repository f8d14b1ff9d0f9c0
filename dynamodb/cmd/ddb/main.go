// ddb compiles an annotated GraphQL SDL into a DynamoDB data layer, its CDC
// functions and their CloudFormation template.
//
// # Installation
//
//	go install github.com/acksell/ddbsdl/dynamodb/cmd/ddb@latest
//
// # Commands
//
//	ddb gen       Generate the data layer, CDC mains, schema dump and template
//	ddb validate  Check the schema and list every error
//	ddb schema    Print the extracted tables as YAML or JSON
//	ddb version   Print the version
//
// Every command reads ddbgen.yaml from the nearest directory at or above the
// working directory, or from --config. DDBGEN_* environment variables and
// flags override the file.
package main

import "os"

func main() {
	os.Exit(execute())
}
