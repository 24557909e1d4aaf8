package dto

import (
	"time"

	domainrating "skillswap/internal/domain/rating"
)

type Rating struct {
	ID        string    `json:"id"`
	SwapID    string    `json:"swap_id"`
	RaterID   string    `json:"rater_id"`
	RateeID   string    `json:"ratee_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingCollection lists ratings a user gave or received. Average covers
// the received ones only, rounded to one decimal.
type RatingCollection struct {
	Items    []Rating `json:"items"`
	Received int      `json:"received"`
	Average  float64  `json:"average"`
}

func MapRating(r *domainrating.Rating) Rating {
	return Rating{
		ID:        string(r.ID),
		SwapID:    string(r.SwapID),
		RaterID:   r.RaterID,
		RateeID:   r.RateeID,
		Score:     r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
