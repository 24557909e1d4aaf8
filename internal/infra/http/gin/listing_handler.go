package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	listingapp "skillswap/internal/app/handlers/listings"
	"skillswap/internal/app/queries"
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createListingRequest struct {
	Name        string `json:"name"`
	Direction   string `json:"direction"`
	Description string `json:"description"`
}

func (h ListingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	listing, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, listingapp.CreateListingCommand{
		OwnerID:     user.ID,
		Name:        req.Name,
		Direction:   req.Direction,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.Logger, err, "create listing", "user_id", user.ID)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// Search lists public listings. owner=me narrows to the caller's own.
func (h ListingHandler) Search(c *gin.Context) {
	owner := c.Query("owner_id")
	if c.Query("owner") == "me" {
		user, ok := requireRole(c, "")
		if !ok {
			return
		}
		owner = user.ID
	}
	result, err := queries.Ask[listingapp.SearchListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, listingapp.SearchListingsQuery{
		OwnerID:   owner,
		Direction: c.Query("direction"),
		Name:      c.Query("q"),
		Limit:     parsePositiveInt(c.Query("limit"), 50),
	})
	if err != nil {
		respondError(c, h.Logger, err, "search listings")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Delete(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	_, err := commands.Dispatch[listingapp.DeleteListingCommand, struct{}](c.Request.Context(), h.Commands, listingapp.DeleteListingCommand{
		ListingID: c.Param("id"),
		OwnerID:   user.ID,
	})
	if err != nil {
		respondError(c, h.Logger, err, "delete listing", "listing_id", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

var _ ListingHTTP = ListingHandler{}
