package purchaserepo

import "errors"

var (
	// ErrAlreadyExists indicates a purchase row already exists with the provided ID.
	ErrAlreadyExists = errors.New("purchase record already exists")
)
