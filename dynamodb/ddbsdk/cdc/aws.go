package cdc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
)

// AWSClients are the service clients a generated CDC function needs.
type AWSClients struct {
	DynamoDB    *dynamodb.Client
	EventBridge *eventbridge.Client
}

// NewAWSClients loads the default AWS configuration of the function's
// environment. Call it once per process, outside the handler.
func NewAWSClients(ctx context.Context) (*AWSClients, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &AWSClients{
		DynamoDB:    dynamodb.NewFromConfig(cfg),
		EventBridge: eventbridge.NewFromConfig(cfg),
	}, nil
}
