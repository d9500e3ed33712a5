package domain

import "time"

// SubscriptionStatus is persisted as a string. The engine only validates and
// stores transitions requested by callers; nothing here is clock-driven
// (overdue detection is fed in by an external process as a status value).
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPaused   SubscriptionStatus = "paused"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionOverdue  SubscriptionStatus = "overdue"
)

// ValidSubscriptionStatus reports whether s is one of the four recognized statuses.
func ValidSubscriptionStatus(s SubscriptionStatus) bool {
	switch s {
	case SubscriptionActive, SubscriptionPaused, SubscriptionCanceled, SubscriptionOverdue:
		return true
	}
	return false
}

// Subscription binds a user's vehicle to a billing plan.
//
// Invariants (enforced at the repository/service layers):
//   - a vehicle is referenced by at most one subscription with status "active"
//   - UserID always equals the referenced vehicle's owner
type Subscription struct {
	ID        SubscriptionID
	UserID    UserID
	VehicleID VehicleID

	Plan   string
	Status SubscriptionStatus

	StartDate time.Time
	// EndDate nil means the subscription is open-ended.
	EndDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
