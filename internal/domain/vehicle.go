package domain

import "time"

const (
	// MinVehicleYear is the oldest model year accepted at registration.
	MinVehicleYear = 1900
)

// Vehicle is a registered vehicle owned by exactly one user.
type Vehicle struct {
	ID     VehicleID
	UserID UserID

	LicensePlate string
	Make         string
	Model        string
	Year         int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidVehicleYear reports whether year is inside the sane model-year range
// relative to now (1900 through next year's models).
func ValidVehicleYear(year int, now time.Time) bool {
	return year >= MinVehicleYear && year <= now.Year()+1
}
