package dto

import (
	"time"

	domainlistings "skillswap/internal/domain/listings"
)

type Listing struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	Name          string    `json:"name"`
	Direction     string    `json:"direction"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
}

func MapListing(l *domainlistings.Listing, ownerUsername string) Listing {
	return Listing{
		ID:            string(l.ID),
		OwnerID:       l.OwnerID,
		OwnerUsername: ownerUsername,
		Name:          l.Name,
		Direction:     string(l.Direction),
		Description:   l.Description,
		CreatedAt:     l.CreatedAt,
	}
}
