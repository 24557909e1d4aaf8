package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/dto"
	dashboardapp "skillswap/internal/app/handlers/dashboard"
	ratingapp "skillswap/internal/app/handlers/ratings"
	"skillswap/internal/app/queries"
)

// UserHandler serves per-user read models: ratings and the dashboard.
type UserHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h UserHandler) Ratings(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[ratingapp.ListRatingsQuery, dto.RatingCollection](c.Request.Context(), h.Queries, ratingapp.ListRatingsQuery{
		Actor:  user.ID,
		UserID: c.Param("id"),
	})
	if err != nil {
		respondError(c, h.Logger, err, "list ratings", "user_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h UserHandler) Dashboard(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[dashboardapp.UserDashboardQuery, dto.Dashboard](c.Request.Context(), h.Queries, dashboardapp.UserDashboardQuery{Actor: user.ID})
	if err != nil {
		respondError(c, h.Logger, err, "dashboard", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ UserHTTP = UserHandler{}
