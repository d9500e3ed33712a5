package domain

import "time"

// PurchaseHistory is an append-only point-in-time billing fact. It is created
// once and never mutated or deleted. SubscriptionID and VehicleID record what
// the purchase covered at the time; they are not re-resolved when the
// subscription is later transferred or removed, so they may dangle.
type PurchaseHistory struct {
	ID     PurchaseID
	UserID UserID

	PurchaseDate time.Time
	Amount       float64
	Description  string

	// Plan is an optional free-form label captured at purchase time.
	Plan *string

	SubscriptionID *SubscriptionID
	VehicleID      *VehicleID

	CreatedAt time.Time
}
