package userrepo

import (
	"context"
	"time"

	"github.com/jdspiral/csr-amp/internal/domain"
)

// User is the persistence shape used by the user repository. It is an
// internal record, not an HTTP DTO.
type User struct {
	ID domain.UserID

	Name  string
	Email string
	// Phone is optional contact metadata; nil means unset.
	Phone  *string
	Status domain.UserStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted users.
//
// Result ordering expectations:
//   - List returns users ordered by CreatedAt descending (newest first), with
//     ID as a tiebreaker to keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error

	GetByID(ctx context.Context, id domain.UserID) (User, error)

	// List returns users whose name contains the search term
	// (case-insensitive substring match). An empty term returns all users.
	List(ctx context.Context, search string) ([]User, error)
}
