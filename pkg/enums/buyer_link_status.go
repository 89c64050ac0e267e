package enums

import "fmt"

// BuyerLinkStatus is the state of the standing relationship between a buyer and a tenant.
type BuyerLinkStatus string

const (
	BuyerLinkStatusActive    BuyerLinkStatus = "active"
	BuyerLinkStatusSuspended BuyerLinkStatus = "suspended"
)

var validBuyerLinkStatuses = []BuyerLinkStatus{
	BuyerLinkStatusActive,
	BuyerLinkStatusSuspended,
}

// String implements fmt.Stringer.
func (s BuyerLinkStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BuyerLinkStatus.
func (s BuyerLinkStatus) IsValid() bool {
	for _, candidate := range validBuyerLinkStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBuyerLinkStatus converts raw input into a BuyerLinkStatus.
func ParseBuyerLinkStatus(value string) (BuyerLinkStatus, error) {
	for _, candidate := range validBuyerLinkStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid buyer link status %q", value)
}
