package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, secret string, ttl time.Duration, opts ...TokenOption) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(secret, ttl, opts...)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	require.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewTokenIssuer("s", 0)
	require.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newIssuer(t, "super-secret", 7*24*time.Hour)

	token, expiresAt, err := issuer.Issue("user-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, 5*time.Second)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestTokenIssuer_Expired(t *testing.T) {
	past := time.Now().Add(-8 * 24 * time.Hour)
	old := newIssuer(t, "secret", 7*24*time.Hour, WithClock(func() time.Time { return past }))
	token, _, err := old.Issue("u1")
	require.NoError(t, err)

	_, err = newIssuer(t, "secret", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, _, err := newIssuer(t, "right-secret", time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = newIssuer(t, "wrong-secret", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer := newIssuer(t, "k", time.Hour)

	for _, token := range []string{"", "not.a.jwt", "abc"} {
		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, ErrTokenMalformed, token)
	}

	good, _, err := issuer.Issue("u3")
	require.NoError(t, err)
	_, err = issuer.Verify(reverse(good))
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: "u4",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u4",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = newIssuer(t, "k", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestTokenIssuer_RequiresExpiry(t *testing.T) {
	claims := Claims{UserID: "u5", RegisteredClaims: jwt.RegisteredClaims{Subject: "u5"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = newIssuer(t, "k", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func reverse(s string) string {
	var b strings.Builder
	for i := len(s) - 1; i >= 0; i-- {
		b.WriteByte(s[i])
	}
	return b.String()
}
