package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	meetingapp "skillswap/internal/app/handlers/meetings"
	"skillswap/internal/app/queries"
)

type MeetingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createMeetingRequest struct {
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
}

func (h MeetingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	meeting, err := commands.Dispatch[meetingapp.CreateMeetingCommand, *dto.Meeting](c.Request.Context(), h.Commands, meetingapp.CreateMeetingCommand{
		ChatID:          c.Param("id"),
		Organizer:       user.ID,
		Type:            req.Type,
		Title:           req.Title,
		Description:     req.Description,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		respondError(c, h.Logger, err, "create meeting", "chat_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

func (h MeetingHandler) List(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[meetingapp.ListMeetingsQuery, dto.MeetingCollection](c.Request.Context(), h.Queries, meetingapp.ListMeetingsQuery{
		ChatID: c.Param("id"),
		Actor:  user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "list meetings", "chat_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeetingHandler) Start(c *gin.Context) {
	h.act(c, "start meeting", func(action meetingapp.MeetingActionCommand) (*dto.Meeting, error) {
		return commands.Dispatch[meetingapp.StartMeetingCommand, *dto.Meeting](c.Request.Context(), h.Commands, meetingapp.StartMeetingCommand{MeetingActionCommand: action})
	})
}

func (h MeetingHandler) End(c *gin.Context) {
	h.act(c, "end meeting", func(action meetingapp.MeetingActionCommand) (*dto.Meeting, error) {
		return commands.Dispatch[meetingapp.EndMeetingCommand, *dto.Meeting](c.Request.Context(), h.Commands, meetingapp.EndMeetingCommand{MeetingActionCommand: action})
	})
}

func (h MeetingHandler) Cancel(c *gin.Context) {
	h.act(c, "cancel meeting", func(action meetingapp.MeetingActionCommand) (*dto.Meeting, error) {
		return commands.Dispatch[meetingapp.CancelMeetingCommand, *dto.Meeting](c.Request.Context(), h.Commands, meetingapp.CancelMeetingCommand{MeetingActionCommand: action})
	})
}

func (h MeetingHandler) Join(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[meetingapp.JoinMeetingQuery, dto.MeetingJoin](c.Request.Context(), h.Queries, meetingapp.JoinMeetingQuery{
		MeetingID: c.Param("id"),
		Actor:     user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "join meeting", "meeting_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeetingHandler) act(c *gin.Context, op string, dispatch func(meetingapp.MeetingActionCommand) (*dto.Meeting, error)) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	meeting, err := dispatch(meetingapp.MeetingActionCommand{MeetingID: c.Param("id"), Actor: user.ID})
	if err != nil {
		respondError(c, h.Logger, err, op, "meeting_id", c.Param("id"), "user_id", user.ID)
		return
	}
	c.JSON(http.StatusOK, meeting)
}

var _ MeetingHTTP = MeetingHandler{}
