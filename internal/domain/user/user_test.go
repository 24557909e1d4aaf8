package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/shared/errs"
)

var testNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newAlice(t *testing.T) *User {
	t.Helper()
	u, err := NewUser(CreateParams{ID: "u-1", Username: " Alice ", Email: "Alice@Example.test", PasswordHash: "hash", CreatedAt: testNow})
	require.NoError(t, err)
	return u
}

func TestNewUserDefaults(t *testing.T) {
	u := newAlice(t)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.test", u.Email)
	assert.Equal(t, []Role{RoleMember}, u.Roles)
	assert.True(t, u.Public)
	assert.True(t, u.Available())
}

func TestSetBanned(t *testing.T) {
	u := newAlice(t)
	later := testNow.Add(time.Hour)

	assert.True(t, u.SetBanned(true, later))
	assert.False(t, u.Available())
	assert.Equal(t, later, u.UpdatedAt)
	assert.False(t, u.SetBanned(true, later.Add(time.Hour)))
	assert.Equal(t, later, u.UpdatedAt)

	assert.True(t, u.SetBanned(false, later))
	assert.True(t, u.Available())
}

func TestUpdateProfile(t *testing.T) {
	u := newAlice(t)
	private := false
	email := " New@Example.test "

	require.NoError(t, u.UpdateProfile(ProfileChanges{Public: &private}, testNow))
	assert.False(t, u.Public)
	assert.Equal(t, "alice@example.test", u.Email)

	require.NoError(t, u.UpdateProfile(ProfileChanges{Email: &email}, testNow))
	assert.Equal(t, "new@example.test", u.Email)

	blank, bad := "  ", "no-at-sign"
	assert.ErrorIs(t, u.UpdateProfile(ProfileChanges{Email: &blank}, testNow), errs.ErrValidation)
	assert.ErrorIs(t, u.UpdateProfile(ProfileChanges{Email: &bad}, testNow), ErrEmailInvalid)
	assert.Equal(t, "new@example.test", u.Email)
}
