package repository

import (
	"context"
	"errors"

	"volunteerhub/api/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository persists user records. Implementations enforce email
// uniqueness themselves; a pre-check by the caller is only an optimisation.
type UserRepository interface {
	// Create stores user and returns it with timestamps filled in. A clash
	// on email yields ErrDuplicateEmail.
	Create(ctx context.Context, user models.User) (models.User, error)
	// FindByEmail matches email exactly. The password hash is left empty
	// unless WithPasswordHash is passed.
	FindByEmail(ctx context.Context, email string, opts ...LookupOption) (models.User, error)
	// GetByID never loads the password hash.
	GetByID(ctx context.Context, id string) (models.User, error)
}

type lookupOptions struct {
	withPasswordHash bool
}

type LookupOption func(*lookupOptions)

// WithPasswordHash asks a lookup to include the stored hash. Only the login
// path should use it.
func WithPasswordHash() LookupOption {
	return func(o *lookupOptions) {
		o.withPasswordHash = true
	}
}

func applyLookupOptions(opts []LookupOption) lookupOptions {
	var o lookupOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
