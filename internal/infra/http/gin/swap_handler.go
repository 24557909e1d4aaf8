package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	ratingapp "skillswap/internal/app/handlers/ratings"
	swapapp "skillswap/internal/app/handlers/swaps"
	"skillswap/internal/app/queries"
)

type SwapHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type proposeSwapRequest struct {
	ReceiverID         string `json:"receiver_id"`
	OfferedListingID   string `json:"offered_listing_id"`
	RequestedListingID string `json:"requested_listing_id"`
	Message            string `json:"message"`
}

func (h SwapHandler) Propose(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req proposeSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	swap, err := commands.Dispatch[swapapp.ProposeSwapCommand, *dto.Swap](c.Request.Context(), h.Commands, swapapp.ProposeSwapCommand{
		RequesterID:        user.ID,
		ReceiverID:         req.ReceiverID,
		OfferedListingID:   req.OfferedListingID,
		RequestedListingID: req.RequestedListingID,
		Message:            req.Message,
		IdempotencyKeyV:    c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, h.Logger, err, "propose swap", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusCreated, swap)
}

func (h SwapHandler) List(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[swapapp.ListMySwapsQuery, dto.SwapCollection](c.Request.Context(), h.Queries, swapapp.ListMySwapsQuery{
		Actor:  user.ID,
		Role:   c.Query("role"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondError(c, h.Logger, err, "list swaps", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SwapHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	swap, err := queries.Ask[swapapp.GetSwapQuery, dto.Swap](c.Request.Context(), h.Queries, swapapp.GetSwapQuery{
		SwapID: c.Param("id"),
		Actor:  user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "get swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, swap)
}

func (h SwapHandler) Accept(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := commands.Dispatch[swapapp.AcceptSwapCommand, *swapapp.AcceptSwapResult](c.Request.Context(), h.Commands, swapapp.AcceptSwapCommand{
		SwapID:          c.Param("id"),
		Actor:           user.ID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, h.Logger, err, "accept swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SwapHandler) Reject(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	swap, err := commands.Dispatch[swapapp.RejectSwapCommand, *dto.Swap](c.Request.Context(), h.Commands, swapapp.RejectSwapCommand{
		SwapID: c.Param("id"),
		Actor:  user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "reject swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, swap)
}

func (h SwapHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	swap, err := commands.Dispatch[swapapp.CancelSwapCommand, *dto.Swap](c.Request.Context(), h.Commands, swapapp.CancelSwapCommand{
		SwapID: c.Param("id"),
		Actor:  user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "cancel swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, swap)
}

type rateSwapRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (h SwapHandler) Rate(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req rateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	rating, err := commands.Dispatch[ratingapp.RateSwapCommand, *dto.Rating](c.Request.Context(), h.Commands, ratingapp.RateSwapCommand{
		SwapID:  c.Param("id"),
		Actor:   user.ID,
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, h.Logger, err, "rate swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusCreated, rating)
}

var _ SwapHTTP = SwapHandler{}
