package repository

import (
	"context"
	"sync"
	"time"

	"volunteerhub/api/internal/models"
)

// MemoryUserRepository keeps users in process memory. The uniqueness check
// and the insert happen under one lock.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return models.User{}, ErrDuplicateEmail
	}

	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)

	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string, opts ...LookupOption) (models.User, error) {
	o := applyLookupOptions(opts)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	user := r.byID[id]
	if !o.withPasswordHash {
		return user.WithoutPasswordHash(), nil
	}
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)
	return user, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user.WithoutPasswordHash(), nil
}

// Delete removes a user. It exists for operational tooling and tests.
func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, user.Email)
	return nil
}
