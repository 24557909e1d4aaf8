package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	chatapp "skillswap/internal/app/handlers/chats"
	"skillswap/internal/app/queries"
)

// ChatHandler serves chats of accepted swaps and their message streams.
type ChatHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h ChatHandler) ListMine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[chatapp.ListMyChatsQuery, dto.ConversationList](c.Request.Context(), h.Queries, chatapp.ListMyChatsQuery{Actor: user.ID})
	if err != nil {
		respondError(c, h.Logger, err, "list chats", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[chatapp.GetChatQuery, dto.Conversation](c.Request.Context(), h.Queries, chatapp.GetChatQuery{
		ChatID: c.Param("id"),
		Actor:  user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "get chat", "chat_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMessages pages forward with ?after=<seq>&limit=<n>.
func (h ChatHandler) ListMessages(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[chatapp.ListMessagesQuery, dto.ChatMessageList](c.Request.Context(), h.Queries, chatapp.ListMessagesQuery{
		ChatID:   c.Param("id"),
		Actor:    user.ID,
		AfterSeq: parseInt64(c.Query("after")),
		Limit:    parsePositiveInt(c.Query("limit"), 0),
	})
	if err != nil {
		respondError(c, h.Logger, err, "list messages", "chat_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) PostMessage(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	msg, err := commands.Dispatch[chatapp.PostMessageCommand, *dto.ChatMessage](c.Request.Context(), h.Commands, chatapp.PostMessageCommand{
		ChatID:  c.Param("id"),
		Sender:  user.ID,
		Content: req.Content,
	})
	if err != nil {
		respondError(c, h.Logger, err, "post message", "chat_id", c.Param("id"), "user_id", user.ID)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

var _ ChatHTTP = ChatHandler{}
