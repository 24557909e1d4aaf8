package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/shared/errs"
)

func TestJWTIssuerRoundTrip(t *testing.T) {
	issuer := NewJWTIssuer([]byte("test-secret-key-for-jwt-signing"))

	token, exp, err := issuer.Issue("user-123", []string{"member", "admin"}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, []string{"member", "admin"}, claims.Roles)
}

func TestJWTIssuerRejectsBadTokens(t *testing.T) {
	issuer := NewJWTIssuer([]byte("test-secret-key-for-jwt-signing"))
	other := NewJWTIssuer([]byte("different-secret"))
	foreign, _, err := other.Issue("user-123", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{name: "wrong secret", token: foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTIssuerExpired(t *testing.T) {
	issuer := NewJWTIssuer([]byte("secret"))
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.Issue("user-123", nil, time.Hour)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)

	_, err = h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRandomTokens(t *testing.T) {
	g := RandomTokens{Size: 10, Prefix: "ss-"}
	a, err := g.NewToken()
	require.NoError(t, err)
	b, err := g.NewToken()
	require.NoError(t, err)
	assert.Len(t, a, 3+16)
	assert.True(t, strings.HasPrefix(a, "ss-"))
	assert.Equal(t, strings.ToLower(a), a)
	assert.NotEqual(t, a, b)
}
