package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/services/auth"
	domainuser "skillswap/internal/domain/user"
)

const principalKey = "skillswap.principal"

// principal is the authenticated caller of the current request.
type principal struct {
	ID       string
	Username string
	Token    string
	User     *domainuser.User
}

// AuthMiddleware resolves a bearer token into the request principal. A
// missing or bad token leaves the request anonymous; requireRole rejects it
// where a user is needed.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	defer c.Next()
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok || m.Service == nil {
		return
	}
	user, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("bearer token rejected", "error", err)
		}
		return
	}
	c.Set(principalKey, principal{
		ID:       string(user.ID),
		Username: user.Username,
		Token:    token,
		User:     user,
	})
}

// requireRole answers 401 for anonymous callers and 403 when role is set
// and the caller lacks it.
func requireRole(c *gin.Context, role domainuser.Role) (principal, bool) {
	val, _ := c.Get(principalKey)
	p, ok := val.(principal)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.User.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
