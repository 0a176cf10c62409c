package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"volunteerhub/api/internal/ids"
	"volunteerhub/api/internal/models"
	"volunteerhub/api/internal/repository"
	"volunteerhub/api/internal/security"
)

// Credentials is the credential store: user persistence plus one-way password
// hashing. Plaintext passwords go no further than the hasher.
type Credentials struct {
	users  repository.UserRepository
	hasher *security.Hasher

	decoyMu   sync.Mutex
	decoyHash []byte
}

func NewCredentials(users repository.UserRepository, hasher *security.Hasher) *Credentials {
	return &Credentials{
		users:  users,
		hasher: hasher,
	}
}

// Create hashes password and stores a new user under a fresh id.
func (c *Credentials) Create(ctx context.Context, name, email, password string) (models.User, error) {
	if _, err := c.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, repository.ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	hash, err := c.hasher.Hash(ctx, password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	return c.users.Create(ctx, models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
}

func (c *Credentials) FindByEmail(ctx context.Context, email string, opts ...repository.LookupOption) (models.User, error) {
	return c.users.FindByEmail(ctx, email, opts...)
}

func (c *Credentials) GetByID(ctx context.Context, id string) (models.User, error) {
	return c.users.GetByID(ctx, id)
}

// Verify compares password against the hash loaded with the user.
func (c *Credentials) Verify(ctx context.Context, user models.User, password string) (bool, error) {
	if len(user.PasswordHash) == 0 {
		return false, fmt.Errorf("verify password: user %s loaded without hash", user.ID)
	}
	return c.hasher.Verify(ctx, password, user.PasswordHash)
}

// VerifyDecoy spends the same work as Verify against a throwaway hash. Login
// calls it for unknown emails so both failure paths cost the same. A failed
// decoy build is retried on the next call.
func (c *Credentials) VerifyDecoy(ctx context.Context, password string) error {
	hash, err := c.decoy(ctx)
	if err != nil {
		return fmt.Errorf("build decoy hash: %w", err)
	}
	_, err = c.hasher.Verify(ctx, password, hash)
	return err
}

func (c *Credentials) decoy(ctx context.Context) ([]byte, error) {
	c.decoyMu.Lock()
	defer c.decoyMu.Unlock()

	if c.decoyHash != nil {
		return c.decoyHash, nil
	}
	hash, err := c.hasher.Hash(ctx, ids.New())
	if err != nil {
		return nil, err
	}
	c.decoyHash = hash
	return hash, nil
}
