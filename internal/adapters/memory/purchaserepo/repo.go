package purchaserepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/purchaserepo"
)

// Repo is an in-memory implementation of purchaserepo.Repository.
// It is safe for concurrent use. Rows are append-only; nothing here can
// mutate or remove a stored purchase.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.PurchaseID]purchaserepo.Purchase
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.PurchaseID]purchaserepo.Purchase),
	}
}

func (r *Repo) Create(ctx context.Context, p purchaserepo.Purchase) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return purchaserepo.ErrAlreadyExists
	}
	r.byID[p.ID] = clonePurchase(p)
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.UserID) ([]purchaserepo.Purchase, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]purchaserepo.Purchase, 0)
	for _, p := range r.byID {
		if p.UserID == userID {
			out = append(out, clonePurchase(p))
		}
	}
	sortPurchasesByDateDesc(out)
	return out, nil
}

func clonePurchase(p purchaserepo.Purchase) purchaserepo.Purchase {
	out := p
	if p.Plan != nil {
		v := *p.Plan
		out.Plan = &v
	}
	if p.SubscriptionID != nil {
		v := *p.SubscriptionID
		out.SubscriptionID = &v
	}
	if p.VehicleID != nil {
		v := *p.VehicleID
		out.VehicleID = &v
	}
	return out
}

func sortPurchasesByDateDesc(ps []purchaserepo.Purchase) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].PurchaseDate.Equal(ps[j].PurchaseDate) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].PurchaseDate.After(ps[j].PurchaseDate)
	})
}
