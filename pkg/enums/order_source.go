package enums

// OrderSource records which surface created an order.
type OrderSource string

const (
	OrderSourceBuyerPortal       OrderSource = "buyer_portal"
	OrderSourceDistributorPortal OrderSource = "distributor_portal"
	OrderSourceAPI               OrderSource = "api"
)

// IsValid reports whether the value is a known OrderSource.
func (s OrderSource) IsValid() bool {
	switch s {
	case OrderSourceBuyerPortal, OrderSourceDistributorPortal, OrderSourceAPI:
		return true
	default:
		return false
	}
}

// SourceForRole picks the default source for an actor when the caller did not specify one.
func SourceForRole(role ActorRole) OrderSource {
	if role == ActorRoleBuyer {
		return OrderSourceBuyerPortal
	}
	if role.IsDistributor() {
		return OrderSourceDistributorPortal
	}
	return OrderSourceAPI
}
