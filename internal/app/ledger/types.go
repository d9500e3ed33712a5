package ledger

import "github.com/jdspiral/csr-amp/internal/domain"

// RecordInput carries one billable event to append to the ledger.
// SubscriptionID and VehicleID are optional point-in-time references; they
// are captured as-is and never re-resolved later.
type RecordInput struct {
	UserID       string
	PurchaseDate string
	Amount       float64
	Description  string

	Plan           *string
	SubscriptionID *string
	VehicleID      *string
}

// SubscriptionRef is the display slice of the referenced subscription as it
// exists at read time.
type SubscriptionRef struct {
	ID     domain.SubscriptionID
	Plan   string
	Status domain.SubscriptionStatus
}

// VehicleRef is the display slice of the referenced vehicle as it exists at
// read time.
type VehicleRef struct {
	ID           domain.VehicleID
	Make         string
	Model        string
	LicensePlate string
}

// Entry is a stored purchase enriched with the current state of its
// references. The enrichment is a presentation join: the plan/status shown
// may differ from what they were at purchase time.
type Entry struct {
	domain.PurchaseHistory
	Subscription *SubscriptionRef
	Vehicle      *VehicleRef
}
