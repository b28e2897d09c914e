package memory

import (
	"context"

	"balance-ledger/internal/core/domain"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	s *Store
}

// NewUserRepo creates a UserRepo over the store.
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{s: s}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.AccountUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
