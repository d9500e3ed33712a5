package subscriptionrepo

import (
	"context"
	"time"

	"github.com/jdspiral/csr-amp/internal/domain"
)

// Subscription is the persistence shape used by the subscription repository.
type Subscription struct {
	ID        domain.SubscriptionID
	UserID    domain.UserID
	VehicleID domain.VehicleID

	Plan   string
	Status domain.SubscriptionStatus

	StartDate time.Time
	// EndDate nil means open-ended.
	EndDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted subscriptions.
//
// Implementations must uphold the at-most-one-active-subscription-per-vehicle
// invariant inside Create, Update and TransferVehicle: the invariant check and
// the write must be a single atomic unit (mutex, transaction, or conditional
// write), never an unguarded read-then-write.
//
// Result ordering expectations:
//   - ListByUser returns subscriptions ordered by CreatedAt descending
//     (newest first), with ID as a tiebreaker.
type Repository interface {
	// Create persists a new subscription. ErrVehicleBusy is returned when the
	// vehicle already carries an active subscription.
	Create(ctx context.Context, s Subscription) error

	// Update replaces plan/status/end-date. ErrVehicleBusy is returned when
	// the update would make a second subscription active on the same vehicle.
	Update(ctx context.Context, s Subscription) error

	GetByID(ctx context.Context, id domain.SubscriptionID) (Subscription, error)

	ListByUser(ctx context.Context, userID domain.UserID) ([]Subscription, error)

	// CountByVehicle counts subscriptions of any status referencing the
	// vehicle. Used for the delete referential guard.
	CountByVehicle(ctx context.Context, vehicleID domain.VehicleID) (int, error)

	// TransferVehicle repoints the subscription's vehicle reference from
	// `from` to `to` as a conditional (compare-and-swap) write:
	//   - ErrNotFound when the subscription does not exist
	//   - ErrVehicleChanged when the subscription no longer points at `from`
	//     (a concurrent transfer won the race)
	//   - ErrVehicleBusy when `to` already carries an active subscription
	// Identity, plan and history are unchanged on success.
	TransferVehicle(ctx context.Context, id domain.SubscriptionID, from, to domain.VehicleID, updatedAt time.Time) error

	// Delete removes the subscription record (hard removal, distinct from
	// cancellation). Purchase history referencing it is left untouched.
	Delete(ctx context.Context, id domain.SubscriptionID) error
}
