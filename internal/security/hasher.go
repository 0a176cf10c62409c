package security

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Hasher runs argon2 work on a fixed number of slots so a burst of logins
// cannot pin every CPU. Callers wait for a slot or give up when ctx ends.
type Hasher struct {
	params Argon2Params
	slots  *semaphore.Weighted
}

func NewHasher(params Argon2Params, workers int) *Hasher {
	if workers <= 0 {
		workers = 1
	}
	return &Hasher{
		params: params,
		slots:  semaphore.NewWeighted(int64(workers)),
	}
}

func (h *Hasher) Hash(ctx context.Context, password string) ([]byte, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.slots.Release(1)

	return HashPasswordWithParams(password, h.params)
}

func (h *Hasher) Verify(ctx context.Context, password string, encodedHash []byte) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.slots.Release(1)

	return VerifyPassword(password, encodedHash)
}
