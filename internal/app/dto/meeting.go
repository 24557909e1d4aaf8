package dto

import (
	"time"

	domainmeeting "skillswap/internal/domain/meeting"
)

type Meeting struct {
	ID              string     `json:"id"`
	ChatID          string     `json:"chat_id"`
	OrganizerID     string     `json:"organizer_id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	URL             string     `json:"meeting_url"`
	RoomID          string     `json:"meeting_room_id"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

type MeetingCollection struct {
	Items []Meeting `json:"items"`
}

// MeetingJoin is what a participant needs to enter the room.
type MeetingJoin struct {
	MeetingID string `json:"meeting_id"`
	URL       string `json:"meeting_url"`
	RoomID    string `json:"meeting_room_id"`
	Status    string `json:"status"`
}

func MapMeeting(m *domainmeeting.Meeting) Meeting {
	return Meeting{
		ID:              string(m.ID),
		ChatID:          string(m.ChatID),
		OrganizerID:     m.OrganizerID,
		Type:            string(m.Type),
		Title:           m.Title,
		Description:     m.Description,
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		URL:             m.URL,
		RoomID:          m.RoomID,
		Status:          string(m.Status),
		CreatedAt:       m.CreatedAt,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
	}
}
