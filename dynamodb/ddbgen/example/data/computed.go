package data

import "fmt"

func accountDisplayName(r *Account) (string, error) {
	if r.ExternalID == "" {
		return "", fmt.Errorf("account has no external id")
	}
	return fmt.Sprintf("%s (%s)", r.ExternalID, r.Vendor), nil
}
