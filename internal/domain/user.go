package domain

import "time"

// UserStatus is the account lifecycle status. Accounts are never hard-deleted;
// cancellation and reactivation are status transitions only.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusCanceled UserStatus = "canceled"
)

// ValidUserStatus reports whether s is one of the recognized account statuses.
func ValidUserStatus(s UserStatus) bool {
	return s == UserStatusActive || s == UserStatusCanceled
}

// User is the domain representation of a subscriber.
type User struct {
	ID UserID

	Name   string
	Email  string
	Phone  *string
	Status UserStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
