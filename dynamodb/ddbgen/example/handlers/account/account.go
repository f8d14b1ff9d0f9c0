// Package account removes the subscription of a deleted account.
package account

import (
	"context"
	"errors"

	"github.com/acksell/ddbsdl/dynamodb/ddbgen/example/data"
	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/acksell/ddbsdl/dynamodb/ddbsdk/cdc"
)

// Handle deletes the Subscription sharing the key of a removed Account. A
// subscription that is already gone is not an error.
func Handle(ctx context.Context, client *data.Client, change cdc.Change[data.Account]) error {
	if change.Kind != cdc.KindRemove {
		return nil
	}
	a := change.Record
	_, err := client.DeleteSubscription(ctx, data.SubscriptionPrimaryKey{
		ExternalID: a.ExternalID,
		Vendor:     a.Vendor,
	})
	if errors.Is(err, ddbsdk.ErrNotFound) {
		return nil
	}
	return err
}
