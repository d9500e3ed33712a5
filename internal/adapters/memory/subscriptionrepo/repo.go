package subscriptionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
)

// Repo is an in-memory implementation of subscriptionrepo.Repository.
// It is safe for concurrent use. A single mutex spans every invariant check
// and its write, which gives Create/Update/TransferVehicle the atomicity the
// port contract requires.
type Repo struct {
	mu   sync.Mutex
	byID map[domain.SubscriptionID]subscriptionrepo.Subscription
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.SubscriptionID]subscriptionrepo.Subscription),
	}
}

func (r *Repo) Create(ctx context.Context, s subscriptionrepo.Subscription) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; ok {
		return subscriptionrepo.ErrAlreadyExists
	}
	if r.vehicleActivelyCoveredLocked(s.VehicleID, s.ID) {
		return subscriptionrepo.ErrVehicleBusy
	}

	r.byID[s.ID] = cloneSubscription(s)
	return nil
}

func (r *Repo) Update(ctx context.Context, s subscriptionrepo.Subscription) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; !ok {
		return subscriptionrepo.ErrNotFound
	}
	if s.Status == domain.SubscriptionActive && r.vehicleActivelyCoveredLocked(s.VehicleID, s.ID) {
		return subscriptionrepo.ErrVehicleBusy
	}

	r.byID[s.ID] = cloneSubscription(s)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.SubscriptionID) (subscriptionrepo.Subscription, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
	}
	return cloneSubscription(s), nil
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.UserID) ([]subscriptionrepo.Subscription, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]subscriptionrepo.Subscription, 0)
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, cloneSubscription(s))
		}
	}
	sortSubscriptionsNewestFirst(out)
	return out, nil
}

func (r *Repo) CountByVehicle(ctx context.Context, vehicleID domain.VehicleID) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.byID {
		if s.VehicleID == vehicleID {
			n++
		}
	}
	return n, nil
}

func (r *Repo) TransferVehicle(ctx context.Context, id domain.SubscriptionID, from, to domain.VehicleID, updatedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return subscriptionrepo.ErrNotFound
	}
	if s.VehicleID != from {
		return subscriptionrepo.ErrVehicleChanged
	}
	if r.vehicleActivelyCoveredLocked(to, id) {
		return subscriptionrepo.ErrVehicleBusy
	}

	s.VehicleID = to
	s.UpdatedAt = updatedAt
	r.byID[id] = s
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.SubscriptionID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return subscriptionrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// vehicleActivelyCoveredLocked reports whether any subscription other than
// exclude is active on the vehicle. Callers must hold r.mu.
func (r *Repo) vehicleActivelyCoveredLocked(vehicleID domain.VehicleID, exclude domain.SubscriptionID) bool {
	for _, s := range r.byID {
		if s.ID == exclude {
			continue
		}
		if s.VehicleID == vehicleID && s.Status == domain.SubscriptionActive {
			return true
		}
	}
	return false
}

func cloneSubscription(s subscriptionrepo.Subscription) subscriptionrepo.Subscription {
	out := s
	if s.EndDate != nil {
		v := *s.EndDate
		out.EndDate = &v
	}
	return out
}

func sortSubscriptionsNewestFirst(ss []subscriptionrepo.Subscription) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].ID < ss[j].ID
		}
		return ss[i].CreatedAt.After(ss[j].CreatedAt)
	})
}
