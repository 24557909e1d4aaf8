package dto

import (
	"time"

	domainnotification "skillswap/internal/domain/notification"
)

type Notification struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	RefID     string     `json:"ref_id,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

type NotificationCollection struct {
	Items  []Notification `json:"items"`
	Unread int            `json:"unread"`
}

func MapNotification(n *domainnotification.Notification) Notification {
	return Notification{
		ID:        string(n.ID),
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		RefID:     n.RefID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
