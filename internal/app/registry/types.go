package registry

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

// UpdateUserInput is a field-level merge: only specified fields change.
// Unrecognized payload fields are rejected at the transport boundary before
// this input is built.
type UpdateUserInput struct {
	Name  Optional[string] // cannot be null
	Email Optional[string] // cannot be null
	Phone Optional[string] // may be null (clears the phone)
	// Status must be one of "active", "canceled" when specified.
	Status Optional[string]
}

type CreateVehicleInput struct {
	UserID       string
	LicensePlate string
	Make         string
	Model        string
	Year         int
}

// UpdateVehicleInput is a field-level merge with the same contract as
// UpdateUserInput. None of the fields may be null.
type UpdateVehicleInput struct {
	LicensePlate Optional[string]
	Make         Optional[string]
	Model        Optional[string]
	Year         Optional[int]
}
