package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	userapp "skillswap/internal/app/handlers/users"
	authsvc "skillswap/internal/app/services/auth"
)

// AuthHandler serves registration, login and the caller's own profile.
// Commands is only needed for profile updates.
type AuthHandler struct {
	Service  *authsvc.Service
	Commands commands.Bus
	Logger   *slog.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	h.authenticate(c, http.StatusCreated, "register", func(ctx context.Context, req credentialsRequest) (*authsvc.AuthResult, error) {
		return h.Service.Register(ctx, authsvc.RegisterParams{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
	})
}

func (h AuthHandler) Login(c *gin.Context) {
	h.authenticate(c, http.StatusOK, "login", func(ctx context.Context, req credentialsRequest) (*authsvc.AuthResult, error) {
		return h.Service.Login(ctx, authsvc.LoginParams{
			Username: strings.TrimSpace(req.Username),
			Password: req.Password,
		})
	})
}

// authenticate binds the credentials body, runs op and answers with a fresh token.
func (h AuthHandler) authenticate(c *gin.Context, status int, op string, run func(context.Context, credentialsRequest) (*authsvc.AuthResult, error)) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := run(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.Logger, err, op)
		return
	}
	c.JSON(status, dto.NewAuthResponse(result.User, result.Token, result.ExpiresAt))
}

func (h AuthHandler) Me(c *gin.Context) {
	if p, ok := requireRole(c, ""); ok {
		c.JSON(http.StatusOK, dto.MapUserProfile(p.User))
	}
}

type updateProfileRequest struct {
	Email  *string `json:"email"`
	Public *bool   `json:"public"`
}

func (h AuthHandler) UpdateMe(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	profile, err := commands.Dispatch[userapp.UpdateProfileCommand, *dto.UserProfile](c.Request.Context(), h.Commands, userapp.UpdateProfileCommand{
		Actor:  p.ID,
		Email:  req.Email,
		Public: req.Public,
	})
	if err != nil {
		respondError(c, h.Logger, err, "update profile", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, profile)
}

var _ AuthHTTP = (*AuthHandler)(nil)
