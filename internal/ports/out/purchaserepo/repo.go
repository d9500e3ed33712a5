package purchaserepo

import (
	"context"
	"time"

	"github.com/jdspiral/csr-amp/internal/domain"
)

// Purchase is the persistence shape of one purchase history row. Rows are
// append-only: there is deliberately no Update or Delete on the repository.
type Purchase struct {
	ID     domain.PurchaseID
	UserID domain.UserID

	PurchaseDate time.Time
	Amount       float64
	Description  string

	Plan *string

	// Point-in-time references. Not foreign-key enforced: the referenced
	// subscription or vehicle may be removed later and the row must survive.
	SubscriptionID *domain.SubscriptionID
	VehicleID      *domain.VehicleID

	CreatedAt time.Time
}

// Repository provides append and read access to purchase history.
//
// Result ordering expectations:
//   - ListByUser returns rows ordered by PurchaseDate descending, with ID as
//     a tiebreaker.
type Repository interface {
	Create(ctx context.Context, p Purchase) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]Purchase, error)
}
