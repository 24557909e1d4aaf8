package user

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/domain/shared/errs"
)

var (
	ErrIDRequired          = fmt.Errorf("%w: user: id is required", errs.ErrValidation)
	ErrUsernameInvalid     = fmt.Errorf("%w: user: username must be 3-40 letters, digits, '.', '_' or '-'", errs.ErrValidation)
	ErrEmailRequired       = fmt.Errorf("%w: user: email is required", errs.ErrValidation)
	ErrPasswordHashMissing = fmt.Errorf("%w: user: password hash is required", errs.ErrValidation)
	ErrInvalidRole         = fmt.Errorf("%w: user: invalid role", errs.ErrValidation)
	ErrUsernameTaken       = fmt.Errorf("%w: user: username already taken", errs.ErrValidation)
	ErrEmailInvalid        = fmt.Errorf("%w: user: email address is invalid", errs.ErrValidation)
	ErrSelfBan             = fmt.Errorf("%w: user: administrators cannot ban themselves", errs.ErrForbidden)
	ErrNotFound            = fmt.Errorf("%w: user", errs.ErrNotFound)
)

type ID string

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User is the directory entry the swap core consumes. Only Username and the
// availability flags matter to it.
type User struct {
	ID           ID
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	Public       bool
	Active       bool
	Banned       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	username := NormalizeUsername(params.Username)
	if !validUsername(username) {
		return nil, ErrUsernameInvalid
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	roles, err := normalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []Role{RoleMember}
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		ID:           ID(id),
		Username:     username,
		Email:        email,
		PasswordHash: params.PasswordHash,
		Roles:        roles,
		Public:       true,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Available reports whether the user may take part in new swaps.
func (u *User) Available() bool {
	return u != nil && u.Active && !u.Banned
}

func (u *User) HasRole(role Role) bool {
	for _, current := range u.Roles {
		if current == role {
			return true
		}
	}
	return false
}

func (u *User) EnsureRole(role Role, now time.Time) error {
	if role != RoleMember && role != RoleAdmin {
		return ErrInvalidRole
	}
	if u.HasRole(role) {
		return nil
	}
	u.Roles = append(u.Roles, role)
	u.UpdatedAt = now.UTC()
	return nil
}

// SetBanned flags or clears the ban and reports whether anything changed.
func (u *User) SetBanned(banned bool, now time.Time) bool {
	if u.Banned == banned {
		return false
	}
	u.Banned = banned
	u.UpdatedAt = now.UTC()
	return true
}

// ProfileChanges lists the self-service fields; nil leaves a field alone.
type ProfileChanges struct {
	Email  *string
	Public *bool
}

func (u *User) UpdateProfile(changes ProfileChanges, now time.Time) error {
	if changes.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*changes.Email))
		if email == "" {
			return ErrEmailRequired
		}
		if local, domain, ok := strings.Cut(email, "@"); !ok || local == "" || domain == "" {
			return ErrEmailInvalid
		}
		u.Email = email
	}
	if changes.Public != nil {
		u.Public = *changes.Public
	}
	u.UpdatedAt = now.UTC()
	return nil
}

// NormalizeUsername lower-cases and trims a username for lookups.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validUsername(username string) bool {
	if n := utf8.RuneCountInString(username); n < 3 || n > 40 {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func normalizeRoles(roles []Role) ([]Role, error) {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		r := Role(strings.ToLower(strings.TrimSpace(string(role))))
		if r != RoleMember && r != RoleAdmin {
			return nil, ErrInvalidRole
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
