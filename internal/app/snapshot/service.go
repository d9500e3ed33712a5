package snapshot

import (
	"context"

	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/app/registry"
	"github.com/jdspiral/csr-amp/internal/app/subscriptions"
	"github.com/jdspiral/csr-amp/internal/domain"
)

// UserSnapshot is the aggregated read of one user's full relationship graph
// at a point in time: the profile, owned vehicles, subscriptions joined with
// their current vehicles, and the purchase ledger with its display joins.
type UserSnapshot struct {
	User            domain.User
	Vehicles        []domain.Vehicle
	Subscriptions   []subscriptions.WithVehicle
	PurchaseHistory []ledger.Entry
}

// Service is the aggregation facade: the only component composing the
// registry, subscription and ledger reads. It holds no state across requests
// and never writes.
type Service struct {
	registry *registry.Service
	subs     *subscriptions.Service
	ledger   *ledger.Service
}

func NewService(reg *registry.Service, subs *subscriptions.Service, led *ledger.Service) *Service {
	return &Service{registry: reg, subs: subs, ledger: led}
}

// GetUser fetches just the profile slice; callers refreshing a single slice
// after a mutation use this or the List methods on the underlying services
// instead of rebuilding the whole snapshot.
func (s *Service) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	return s.registry.GetUser(ctx, id)
}

// GetUserSnapshot assembles the snapshot via four independent reads. It fails
// only when the user itself is missing; a user with zero vehicles,
// subscriptions or purchases is a valid snapshot with empty slices.
func (s *Service) GetUserSnapshot(ctx context.Context, id domain.UserID) (UserSnapshot, error) {
	u, err := s.registry.GetUser(ctx, id)
	if err != nil {
		return UserSnapshot{}, err
	}

	vs, err := s.registry.ListVehicles(ctx, id)
	if err != nil {
		return UserSnapshot{}, err
	}
	ss, err := s.subs.ListForUser(ctx, id)
	if err != nil {
		return UserSnapshot{}, err
	}
	ph, err := s.ledger.ListForUser(ctx, id)
	if err != nil {
		return UserSnapshot{}, err
	}

	return UserSnapshot{
		User:            u,
		Vehicles:        vs,
		Subscriptions:   ss,
		PurchaseHistory: ph,
	}, nil
}
