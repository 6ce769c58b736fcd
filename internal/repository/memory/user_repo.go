package memory

import (
	"context"
	"fmt"
	"strings"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
)

type UserRepository struct{ s *Store }

var _ interfaces.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) Merge(ctx context.Context, id string, patch model.UserPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.users[id]
	u.ID = id
	patch.Apply(&u)
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

type AccountRepository struct{ s *Store }

var _ interfaces.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[account.UID]; ok {
		return fmt.Errorf("账号已存在: %s", account.UID)
	}
	for _, a := range r.s.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return fmt.Errorf("邮箱已被使用: %s", account.Email)
		}
	}
	r.s.accounts[account.UID] = *account
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, uid string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[uid]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[account.UID]; !ok {
		return fmt.Errorf("账号不存在: %s", account.UID)
	}
	r.s.accounts[account.UID] = *account
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.accounts, uid)
	return nil
}
