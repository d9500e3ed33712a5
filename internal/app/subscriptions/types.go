package subscriptions

import "github.com/jdspiral/csr-amp/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// CreateInput carries the signup request. StartDate is a calendar date string
// ("2024-01-01"); RFC 3339 timestamps are accepted and truncated to the date.
type CreateInput struct {
	UserID    string
	VehicleID string
	Plan      string
	StartDate string
	Status    string
}

// UpdateInput is a field-level merge over plan, status and end date.
//
// EndDate null clears the end date (open-ended). When status is set to
// "canceled" the end date is whatever the caller supplies; it is never
// inferred from the mutation time.
type UpdateInput struct {
	Plan    Optional[string] // cannot be null
	Status  Optional[string] // cannot be null
	EndDate Optional[string] // may be null
}

// WithVehicle is a subscription joined with its current vehicle snapshot for
// display. Vehicle is nil only if the referenced vehicle cannot be resolved.
type WithVehicle struct {
	domain.Subscription
	Vehicle *domain.Vehicle
}
