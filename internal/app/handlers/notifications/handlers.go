package notifications

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainnotification "skillswap/internal/domain/notification"
	"skillswap/internal/domain/shared/errs"
)

const (
	listNotificationsKey = "notifications.list"
	markReadKey          = "notifications.mark_read"
	markAllReadKey       = "notifications.mark_all_read"
)

type ListNotificationsQuery struct {
	Actor      string
	UnreadOnly bool
}

func (q ListNotificationsQuery) Key() string     { return listNotificationsKey }
func (q ListNotificationsQuery) ActorID() string { return q.Actor }

type ListNotificationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListNotificationsHandler) Handle(ctx context.Context, q ListNotificationsQuery) (dto.NotificationCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.NotificationCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Notifications().ListByRecipient(ctx, q.Actor, q.UnreadOnly)
	if err != nil {
		return dto.NotificationCollection{}, err
	}
	out := dto.NotificationCollection{Items: make([]dto.Notification, 0, len(list))}
	for _, n := range list {
		if !n.Read {
			out.Unread++
		}
		out.Items = append(out.Items, dto.MapNotification(n))
	}
	return out, nil
}

type MarkReadCommand struct {
	NotificationID string
	Actor          string
}

func (c MarkReadCommand) Key() string     { return markReadKey }
func (c MarkReadCommand) ActorID() string { return c.Actor }

func (c MarkReadCommand) Validate() error {
	if strings.TrimSpace(c.NotificationID) == "" {
		return fmt.Errorf("%w: notification: id is required", errs.ErrValidation)
	}
	return nil
}

type MarkReadHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *MarkReadHandler) Handle(ctx context.Context, cmd MarkReadCommand) (*dto.Notification, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	n, err := unit.Notifications().ByID(ctx, domainnotification.NotificationID(cmd.NotificationID))
	if err != nil {
		return nil, err
	}
	changed, err := n.MarkRead(cmd.Actor, h.Clock.Now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := unit.Notifications().Save(ctx, n); err != nil {
			return nil, err
		}
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapNotification(n)
	return &out, nil
}

type MarkAllReadCommand struct {
	Actor string
}

func (c MarkAllReadCommand) Key() string     { return markAllReadKey }
func (c MarkAllReadCommand) ActorID() string { return c.Actor }

type MarkAllReadResult struct {
	Updated int `json:"updated"`
}

type MarkAllReadHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *MarkAllReadHandler) Handle(ctx context.Context, cmd MarkAllReadCommand) (MarkAllReadResult, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return MarkAllReadResult{}, err
	}
	defer unit.Release()

	n, err := unit.Notifications().MarkAllRead(ctx, cmd.Actor, h.Clock.Now())
	if err != nil {
		return MarkAllReadResult{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return MarkAllReadResult{}, err
	}
	return MarkAllReadResult{Updated: n}, nil
}

var _ queries.Handler[ListNotificationsQuery, dto.NotificationCollection] = (*ListNotificationsHandler)(nil)
var _ commands.Handler[MarkReadCommand, *dto.Notification] = (*MarkReadHandler)(nil)
var _ commands.Handler[MarkAllReadCommand, MarkAllReadResult] = (*MarkAllReadHandler)(nil)
