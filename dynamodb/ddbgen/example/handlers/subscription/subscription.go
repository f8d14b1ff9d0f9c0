// Package subscription maps Subscription changes onto the Account with the
// same external id and vendor.
package subscription

import (
	"context"

	"github.com/acksell/ddbsdl/dynamodb/ddbgen/example/data"
	"github.com/acksell/ddbsdl/dynamodb/ddbsdk/cdc"
)

// Create opens the account of a subscription seen for the first time.
func Create(_ context.Context, change cdc.Change[data.Subscription]) (*data.CreateAccountInput, error) {
	s := change.Record
	return &data.CreateAccountInput{
		ExternalID:    s.ExternalID,
		Vendor:        s.Vendor,
		EffectiveDate: s.EffectiveDate,
		PlanName:      s.PlanName,
		Seats:         s.Seats,
		Region:        s.Region,
		Active:        s.CancelledAt == nil,
	}, nil
}

// Update merges a subscription into its account. Events are delivered at
// least once and in no particular order, so a change that is not effective
// after the merged one is skipped.
func Update(_ context.Context, change cdc.Change[data.Subscription], account *data.Account) (*data.UpdateAccountInput, error) {
	s := change.Record
	if !s.EffectiveDate.After(account.EffectiveDate) {
		return nil, nil
	}
	return &data.UpdateAccountInput{
		EffectiveDate: s.EffectiveDate,
		PlanName:      s.PlanName,
		Seats:         s.Seats,
		Region:        s.Region,
		Active:        s.CancelledAt == nil,
	}, nil
}
