package vehiclerepo

import (
	"context"
	"time"

	"github.com/jdspiral/csr-amp/internal/domain"
)

// Vehicle is the persistence shape used by the vehicle repository.
// LicensePlate is stored normalized (see domain.NormalizePlate) and is unique
// across the whole system.
type Vehicle struct {
	ID     domain.VehicleID
	UserID domain.UserID

	LicensePlate string
	Make         string
	Model        string
	Year         int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted vehicles.
//
// Result ordering expectations:
//   - ListByUser returns vehicles ordered by CreatedAt ascending (registration
//     order), with ID as a tiebreaker.
type Repository interface {
	// Create persists a new vehicle. ErrPlateTaken is returned when another
	// vehicle already holds the plate.
	Create(ctx context.Context, v Vehicle) error

	// Update replaces the stored record. ErrPlateTaken is returned when the
	// new plate collides with a different vehicle.
	Update(ctx context.Context, v Vehicle) error

	GetByID(ctx context.Context, id domain.VehicleID) (Vehicle, error)

	// GetByPlate looks a vehicle up by its normalized plate.
	GetByPlate(ctx context.Context, plate string) (Vehicle, error)

	ListByUser(ctx context.Context, userID domain.UserID) ([]Vehicle, error)

	// Delete removes the vehicle. The referential guard (no subscription may
	// still reference it) is enforced by the caller before deletion.
	Delete(ctx context.Context, id domain.VehicleID) error
}
