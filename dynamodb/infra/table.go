package infra

import (
	"github.com/acksell/ddbsdl/dynamodb/schema"
	"github.com/acksell/ddbsdl/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableID is the logical ID of a table resource.
func TableID(name string) string {
	return logicalID(name, "table")
}

// Table is the fragment of one physical table. The table name is left to
// CloudFormation and exported as an output.
func Table(t schema.Table) *Fragment {
	def := table.FromSchema(t)
	id := TableID(t.Name)

	attrs := []string{def.KeyDefinitions.PartitionKey.Name}
	keySchema := []map[string]any{keyElement(def.KeyDefinitions.PartitionKey.Name, types.KeyTypeHash)}
	if sk := def.KeyDefinitions.SortKey.Name; sk != "" {
		attrs = append(attrs, sk)
		keySchema = append(keySchema, keyElement(sk, types.KeyTypeRange))
	}

	props := map[string]any{
		"BillingMode": string(types.BillingModePayPerRequest),
		"KeySchema":   keySchema,
	}

	var gsis []map[string]any
	for _, g := range def.GSIs {
		ks := []map[string]any{keyElement(g.KeyDefinitions.PartitionKey.Name, types.KeyTypeHash)}
		attrs = append(attrs, g.KeyDefinitions.PartitionKey.Name)
		if sk := g.KeyDefinitions.SortKey.Name; sk != "" {
			ks = append(ks, keyElement(sk, types.KeyTypeRange))
			attrs = append(attrs, sk)
		}
		gsis = append(gsis, map[string]any{
			"IndexName":  g.Name,
			"KeySchema":  ks,
			"Projection": projection(g.Projection, g.NonKeyAttributes),
		})
	}
	if len(gsis) > 0 {
		props["GlobalSecondaryIndexes"] = gsis
	}

	var lsis []map[string]any
	for _, l := range def.LSIs {
		attrs = append(attrs, l.KeyDefinitions.SortKey.Name)
		lsis = append(lsis, map[string]any{
			"IndexName": l.Name,
			"KeySchema": []map[string]any{
				keyElement(l.KeyDefinitions.PartitionKey.Name, types.KeyTypeHash),
				keyElement(l.KeyDefinitions.SortKey.Name, types.KeyTypeRange),
			},
			"Projection": projection(l.Projection, l.NonKeyAttributes),
		})
	}
	if len(lsis) > 0 {
		props["LocalSecondaryIndexes"] = lsis
	}

	props["AttributeDefinitions"] = attributeDefinitions(attrs)
	if def.StreamEnabled {
		props["StreamSpecification"] = map[string]any{
			"StreamViewType": string(types.StreamViewTypeNewAndOldImages),
		}
	}
	if t.PointInTimeRecovery {
		props["PointInTimeRecoverySpecification"] = map[string]any{
			"PointInTimeRecoveryEnabled": true,
		}
	}
	if def.TimeToLiveKey != "" {
		props["TimeToLiveSpecification"] = map[string]any{
			"AttributeName": def.TimeToLiveKey,
			"Enabled":       true,
		}
	}

	f := NewFragment()
	f.Resources[id] = Resource{Type: "AWS::DynamoDB::Table", Properties: props}
	f.Outputs[logicalID(t.Name, "table", "name")] = Output{
		Description: "Physical name of the " + t.Name + " table, bound to " + schema.TableEnvVar(t.Name),
		Value:       ref(id),
	}
	return f
}

func keyElement(attr string, kt types.KeyType) map[string]any {
	return map[string]any{"AttributeName": attr, "KeyType": string(kt)}
}

// attributeDefinitions declares every key attribute once. Generated keys
// are always strings.
func attributeDefinitions(attrs []string) []map[string]any {
	seen := map[string]bool{}
	var out []map[string]any
	for _, a := range attrs {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, map[string]any{
			"AttributeName": a,
			"AttributeType": string(types.ScalarAttributeTypeS),
		})
	}
	return out
}

func projection(kind table.ProjectionKind, nonKey []string) map[string]any {
	p := map[string]any{"ProjectionType": string(kind)}
	if kind == table.ProjectInclude {
		p["NonKeyAttributes"] = nonKey
	}
	return p
}
