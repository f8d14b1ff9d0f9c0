package ddbsdk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Continuation tokens are base64url encoded JSON of the LastEvaluatedKey.
// Every key attribute the data layer writes is a string, so the token only
// carries strings.

func encodeCursor(key Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	raw := make(map[string]string, len(key))
	for name, av := range key {
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("encode cursor: key attribute %q is %T, want string", name, av)
		}
		raw[name] = s.Value
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(token string) (Item, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	key := make(Item, len(raw))
	for name, v := range raw {
		key[name] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
