package userrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.UserID]userrepo.User
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.UserID]userrepo.User),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *Repo) Update(ctx context.Context, u userrepo.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; !ok {
		return userrepo.ErrNotFound
	}
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) List(ctx context.Context, search string) ([]userrepo.User, error) {
	_ = ctx
	needle := strings.ToLower(strings.TrimSpace(search))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]userrepo.User, 0, len(r.byID))
	for _, u := range r.byID {
		if needle != "" && !strings.Contains(strings.ToLower(u.Name), needle) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sortUsersNewestFirst(out)
	return out, nil
}

func cloneUser(u userrepo.User) userrepo.User {
	out := u
	if u.Phone != nil {
		v := *u.Phone
		out.Phone = &v
	}
	return out
}

func sortUsersNewestFirst(us []userrepo.User) {
	sort.Slice(us, func(i, j int) bool {
		if us[i].CreatedAt.Equal(us[j].CreatedAt) {
			return us[i].ID < us[j].ID
		}
		return us[i].CreatedAt.After(us[j].CreatedAt)
	})
}
