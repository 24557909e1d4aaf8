package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/domain/shared/errs"
)

var (
	ErrNotFound          = fmt.Errorf("%w: notification", errs.ErrNotFound)
	ErrRecipientRequired = fmt.Errorf("%w: notification: recipient is required", errs.ErrValidation)
	ErrKindRequired      = fmt.Errorf("%w: notification: kind is required", errs.ErrValidation)
)

type NotificationID string

type Kind string

const (
	KindSwapAccepted     Kind = "swap_accepted"
	KindSwapRejected     Kind = "swap_rejected"
	KindSwapCompleted    Kind = "swap_completed"
	KindMeetingScheduled Kind = "meeting_scheduled"
	KindMeetingStarted   Kind = "meeting_started"
	KindMeetingCancelled Kind = "meeting_cancelled"
	KindRatingReceived   Kind = "rating_received"
)

// Notification is owned by its recipient; nobody else may change it.
type Notification struct {
	ID          NotificationID
	RecipientID string
	Kind        Kind
	Title       string
	Body        string
	RefID       string
	Read        bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}

type Repository interface {
	ByID(ctx context.Context, id NotificationID) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*Notification, error)
	Save(ctx context.Context, n *Notification) error
	// MarkAllRead flags every unread notification of the recipient and returns how many changed.
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)
}

type CreateParams struct {
	ID          NotificationID
	RecipientID string
	Kind        Kind
	Title       string
	Body        string
	RefID       string
	Now         time.Time
}

func New(params CreateParams) (*Notification, error) {
	recipient := strings.TrimSpace(params.RecipientID)
	if recipient == "" {
		return nil, ErrRecipientRequired
	}
	if strings.TrimSpace(string(params.Kind)) == "" {
		return nil, ErrKindRequired
	}
	return &Notification{
		ID:          params.ID,
		RecipientID: recipient,
		Kind:        params.Kind,
		Title:       strings.TrimSpace(params.Title),
		Body:        strings.TrimSpace(params.Body),
		RefID:       params.RefID,
		CreatedAt:   params.Now.UTC(),
	}, nil
}

// MarkRead flags the notification as read. Only the recipient may do it and
// strangers are told it does not exist. Reports whether anything changed.
func (n *Notification) MarkRead(actor string, now time.Time) (bool, error) {
	if actor != n.RecipientID {
		return false, ErrNotFound
	}
	if n.Read {
		return false, nil
	}
	at := now.UTC()
	n.Read = true
	n.ReadAt = &at
	return true, nil
}
