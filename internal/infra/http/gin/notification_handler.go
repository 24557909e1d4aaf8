package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	notificationapp "skillswap/internal/app/handlers/notifications"
	"skillswap/internal/app/queries"
)

type NotificationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h NotificationHandler) List(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[notificationapp.ListNotificationsQuery, dto.NotificationCollection](c.Request.Context(), h.Queries, notificationapp.ListNotificationsQuery{
		Actor:      user.ID,
		UnreadOnly: parseBool(c.Query("unread")),
	})
	if err != nil {
		respondError(c, h.Logger, err, "list notifications", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NotificationHandler) MarkRead(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	n, err := commands.Dispatch[notificationapp.MarkReadCommand, *dto.Notification](c.Request.Context(), h.Commands, notificationapp.MarkReadCommand{
		NotificationID: c.Param("id"),
		Actor:          user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "mark notification read", "notification_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h NotificationHandler) MarkAllRead(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := commands.Dispatch[notificationapp.MarkAllReadCommand, notificationapp.MarkAllReadResult](c.Request.Context(), h.Commands, notificationapp.MarkAllReadCommand{
		Actor: user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "mark all notifications read", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ NotificationHTTP = NotificationHandler{}
