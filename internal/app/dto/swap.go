package dto

import (
	"time"

	domainswap "skillswap/internal/domain/swap"
)

type Swap struct {
	ID                 string     `json:"id"`
	RequesterID        string     `json:"requester_id"`
	ReceiverID         string     `json:"receiver_id"`
	OfferedListingID   string     `json:"offered_listing_id"`
	RequestedListingID string     `json:"requested_listing_id"`
	OfferedSkill       string     `json:"offered_skill"`
	RequestedSkill     string     `json:"requested_skill"`
	Message            string     `json:"message,omitempty"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	RespondedAt        *time.Time `json:"responded_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

type SwapCollection struct {
	Items []Swap `json:"items"`
}

func MapSwap(s *domainswap.Swap) Swap {
	return Swap{
		ID:                 string(s.ID),
		RequesterID:        s.RequesterID,
		ReceiverID:         s.ReceiverID,
		OfferedListingID:   string(s.OfferedListingID),
		RequestedListingID: string(s.RequestedListingID),
		OfferedSkill:       s.OfferedSkill,
		RequestedSkill:     s.RequestedSkill,
		Message:            s.Message,
		Status:             string(s.Status),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		RespondedAt:        s.RespondedAt,
		CompletedAt:        s.CompletedAt,
	}
}
