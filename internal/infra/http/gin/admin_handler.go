package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	dashboardapp "skillswap/internal/app/handlers/dashboard"
	swapapp "skillswap/internal/app/handlers/swaps"
	userapp "skillswap/internal/app/handlers/users"
	"skillswap/internal/app/queries"
)

// AdminHandler exposes the operator-only operations.
type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AdminHandler) CompleteSwap(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	swap, err := commands.Dispatch[swapapp.CompleteSwapCommand, *dto.Swap](c.Request.Context(), h.Commands, swapapp.CompleteSwapCommand{
		SwapID: c.Param("id"),
		Source: "admin",
	})
	if err != nil {
		respondError(c, h.Logger, err, "complete swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, swap)
}

func (h AdminHandler) PurgeSwap(c *gin.Context) {
	principal, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	_, err := commands.Dispatch[swapapp.PurgeSwapCommand, struct{}](c.Request.Context(), h.Commands, swapapp.PurgeSwapCommand{
		SwapID: c.Param("id"),
		Actor:  principal.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "purge swap", "swap_id", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AdminHandler) BanUser(c *gin.Context) {
	h.setBan(c, true)
}

func (h AdminHandler) UnbanUser(c *gin.Context) {
	h.setBan(c, false)
}

func (h AdminHandler) setBan(c *gin.Context, banned bool) {
	principal, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	profile, err := commands.Dispatch[userapp.SetBanCommand, *dto.UserProfile](c.Request.Context(), h.Commands, userapp.SetBanCommand{
		UserID: c.Param("id"),
		Actor:  principal.ID,
		Banned: banned,
	})
	if err != nil {
		respondError(c, h.Logger, err, "set ban", "user_id", c.Param("id"), "banned", banned)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h AdminHandler) Dashboard(c *gin.Context) {
	principal, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	result, err := queries.Ask[dashboardapp.PlatformDashboardQuery, dto.PlatformDashboard](c.Request.Context(), h.Queries, dashboardapp.PlatformDashboardQuery{
		Actor: principal.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "admin dashboard")
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
