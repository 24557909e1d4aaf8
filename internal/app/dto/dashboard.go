package dto

import (
	"skillswap/internal/app/uow"
	domainrating "skillswap/internal/domain/rating"
)

type Dashboard struct {
	ListingsOffered         int     `json:"listings_offered"`
	ListingsRequested       int     `json:"listings_requested"`
	PendingRequestsSent     int     `json:"pending_requests_sent"`
	PendingRequestsReceived int     `json:"pending_requests_received"`
	CompletedSwaps          int     `json:"completed_swaps"`
	AverageRating           float64 `json:"average_rating"`
	UpcomingMeetings        int     `json:"upcoming_meetings"`
	UnreadNotifications     int     `json:"unread_notifications"`
}

type PlatformDashboard struct {
	ActiveUsers      int     `json:"active_users"`
	BannedUsers      int     `json:"banned_users"`
	Listings         int     `json:"listings"`
	Swaps            int     `json:"swaps"`
	PendingSwaps     int     `json:"pending_swaps"`
	CompletedSwaps   int     `json:"completed_swaps"`
	Meetings         int     `json:"meetings"`
	UpcomingMeetings int     `json:"upcoming_meetings"`
	Ratings          int     `json:"ratings"`
	AverageRating    float64 `json:"average_rating"`
}

func MapPlatformDashboard(t uow.Totals) PlatformDashboard {
	return PlatformDashboard{
		ActiveUsers:      t.Users,
		BannedUsers:      t.BannedUsers,
		Listings:         t.Listings,
		Swaps:            t.Swaps,
		PendingSwaps:     t.PendingSwaps,
		CompletedSwaps:   t.CompletedSwaps,
		Meetings:         t.Meetings,
		UpcomingMeetings: t.UpcomingMeetings,
		Ratings:          t.Ratings,
		AverageRating:    domainrating.Round1(t.AverageRating),
	}
}
