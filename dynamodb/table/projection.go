package table

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ProjectionKind selects which attributes a secondary index carries.
type ProjectionKind string

const (
	ProjectAll      ProjectionKind = "ALL"
	ProjectKeysOnly ProjectionKind = "KEYS_ONLY"
	// ProjectInclude carries the keys plus the index's NonKeyAttributes.
	ProjectInclude ProjectionKind = "INCLUDE"
)

// Project returns the attributes of doc stored in an index with the given
// projection. keyAttrs are the attributes a partial projection keeps: the
// table and index keys, plus the non-key attributes of an INCLUDE index.
func (p ProjectionKind) Project(doc map[string]types.AttributeValue, keyAttrs ...string) map[string]types.AttributeValue {
	if p == ProjectAll || p == "" {
		out := make(map[string]types.AttributeValue, len(doc))
		for k, v := range doc {
			out[k] = v
		}
		return out
	}
	proj := make(map[string]types.AttributeValue, len(keyAttrs))
	for _, key := range keyAttrs {
		if val, ok := doc[key]; ok {
			proj[key] = val
		}
	}
	return proj
}
