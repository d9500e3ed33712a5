package vehiclerepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

// Repo is an in-memory implementation of vehiclerepo.Repository.
// It is safe for concurrent use. Plates are expected pre-normalized by the
// application layer; uniqueness is tracked on the stored value.
type Repo struct {
	mu        sync.RWMutex
	byID      map[domain.VehicleID]vehiclerepo.Vehicle
	idByPlate map[string]domain.VehicleID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.VehicleID]vehiclerepo.Vehicle),
		idByPlate: make(map[string]domain.VehicleID),
	}
}

func (r *Repo) Create(ctx context.Context, v vehiclerepo.Vehicle) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[v.ID]; ok {
		return vehiclerepo.ErrAlreadyExists
	}
	if holder, ok := r.idByPlate[v.LicensePlate]; ok && holder != v.ID {
		return vehiclerepo.ErrPlateTaken
	}

	r.byID[v.ID] = v
	r.idByPlate[v.LicensePlate] = v.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, v vehiclerepo.Vehicle) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[v.ID]
	if !ok {
		return vehiclerepo.ErrNotFound
	}
	if holder, ok := r.idByPlate[v.LicensePlate]; ok && holder != v.ID {
		return vehiclerepo.ErrPlateTaken
	}

	if existing.LicensePlate != v.LicensePlate {
		delete(r.idByPlate, existing.LicensePlate)
	}
	r.byID[v.ID] = v
	r.idByPlate[v.LicensePlate] = v.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (vehiclerepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) GetByPlate(ctx context.Context, plate string) (vehiclerepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByPlate[plate]
	if !ok {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}
	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.UserID) ([]vehiclerepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]vehiclerepo.Vehicle, 0)
	for _, v := range r.byID {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	sortVehiclesByRegistration(out)
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByPlate, v.LicensePlate)
	return nil
}

func sortVehiclesByRegistration(vs []vehiclerepo.Vehicle) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].ID < vs[j].ID
		}
		return vs[i].CreatedAt.Before(vs[j].CreatedAt)
	})
}
