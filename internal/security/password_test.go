package security

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithParams("secret123", testParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t=1,m=8192,p=1$"))
	assert.NotContains(t, string(hash), "secret123")

	ok, err := VerifyPassword("secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("secret124", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_IsSalted(t *testing.T) {
	a, err := HashPasswordWithParams("same", testParams)
	require.NoError(t, err)
	b, err := HashPasswordWithParams("same", testParams)
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(b))
}

func TestVerifyPassword_RejectsGarbage(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$t=1,m=8,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$t=1,m=8,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$nope$c2FsdA$a2V5",
		"$argon2id$v=19$t=1,m=8,p=1$!!$a2V5",
	} {
		_, err := VerifyPassword("x", []byte(encoded))
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(testParams, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret123")
	require.NoError(t, err)

	ok, err := h.Verify(ctx, "secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_BoundsConcurrency(t *testing.T) {
	h := NewHasher(testParams, 1)
	// hold the only slot
	require.NoError(t, h.slots.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Hash(ctx, "secret123")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	h.slots.Release(1)

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.Hash(context.Background(), "secret123"); err == nil {
				success.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(4), success.Load())
}
