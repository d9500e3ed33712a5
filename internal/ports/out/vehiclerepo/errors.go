package vehiclerepo

import "errors"

var (
	// ErrNotFound indicates the requested vehicle does not exist.
	ErrNotFound = errors.New("vehicle not found")

	// ErrAlreadyExists indicates a vehicle already exists with the provided ID.
	ErrAlreadyExists = errors.New("vehicle already exists")

	// ErrPlateTaken indicates the license plate is already registered to a
	// different vehicle.
	ErrPlateTaken = errors.New("license plate already registered")

	// ErrInUse indicates the vehicle is still referenced by at least one
	// subscription and cannot be deleted.
	ErrInUse = errors.New("vehicle still referenced by a subscription")
)
