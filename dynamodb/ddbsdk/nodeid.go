package ddbsdk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// NodeID is the decoded form of the opaque identifier every record carries.
// It is derived from the physical key, so it is stable for the record's
// lifetime and resolves without any secondary lookup.
type NodeID struct {
	EntityType   string
	PartitionKey string
	SortKey      string
	// Composite marks a key with a sort key, which may be empty.
	Composite bool
}

// EncodeNodeID encodes the id. A non-empty SortKey implies Composite.
func EncodeNodeID(id NodeID) string {
	parts := []string{id.EntityType, id.PartitionKey}
	if id.Composite || id.SortKey != "" {
		parts = append(parts, id.SortKey)
	}
	// A []string never fails to marshal.
	b, _ := json.Marshal(parts)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeNodeID(s string) (NodeID, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("decode node id: %w", err)
	}
	var parts []string
	if err := json.Unmarshal(b, &parts); err != nil {
		return NodeID{}, fmt.Errorf("decode node id: %w", err)
	}
	switch len(parts) {
	case 2:
		return NodeID{EntityType: parts[0], PartitionKey: parts[1]}, nil
	case 3:
		return NodeID{EntityType: parts[0], PartitionKey: parts[1], SortKey: parts[2], Composite: true}, nil
	}
	return NodeID{}, fmt.Errorf("decode node id: expected 2 or 3 parts, got %d", len(parts))
}

// NodeIDFromItem builds the node id of a stored record from its key
// attributes.
func NodeIDFromItem(r *AttributeReader, entityType string, hasSortKey bool) string {
	id := NodeID{EntityType: entityType, PartitionKey: r.Key(AttrPartitionKey)}
	if hasSortKey {
		id.SortKey = r.Key(AttrSortKey)
		id.Composite = true
	}
	return EncodeNodeID(id)
}

// Key returns the physical key the node id points at.
func (id NodeID) Key() Item {
	if !id.Composite && id.SortKey == "" {
		return KeyOf(id.PartitionKey)
	}
	return KeyOf(id.PartitionKey, id.SortKey)
}
