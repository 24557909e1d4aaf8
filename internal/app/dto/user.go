package dto

import (
	"time"

	domainuser "skillswap/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	Public    bool      `json:"public"`
	Active    bool      `json:"active"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse answers register and login with the bearer token to use.
type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func MapUserProfile(u *domainuser.User) UserProfile {
	if u == nil {
		return UserProfile{}
	}
	p := UserProfile{
		ID:        string(u.ID),
		Username:  u.Username,
		Email:     u.Email,
		Roles:     make([]string, len(u.Roles)),
		Public:    u.Public,
		Active:    u.Active,
		Banned:    u.Banned,
		CreatedAt: u.CreatedAt,
	}
	for i, r := range u.Roles {
		p.Roles[i] = string(r)
	}
	return p
}

func NewAuthResponse(u *domainuser.User, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{User: MapUserProfile(u), Token: token, ExpiresAt: expiresAt}
}
