package subscriptionrepo

import "errors"

var (
	// ErrNotFound indicates the requested subscription does not exist.
	ErrNotFound = errors.New("subscription not found")

	// ErrAlreadyExists indicates a subscription already exists with the provided ID.
	ErrAlreadyExists = errors.New("subscription already exists")

	// ErrVehicleBusy indicates the target vehicle already carries an active
	// subscription.
	ErrVehicleBusy = errors.New("vehicle already has an active subscription")

	// ErrVehicleChanged indicates the conditional transfer guard failed: the
	// subscription's vehicle reference moved between read and write.
	ErrVehicleChanged = errors.New("subscription vehicle changed concurrently")
)
