package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainrating "skillswap/internal/domain/rating"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

const (
	userDashboardKey     = "dashboard.user"
	platformDashboardKey = "dashboard.platform"
)

type UserDashboardQuery struct {
	Actor string
}

func (q UserDashboardQuery) Key() string     { return userDashboardKey }
func (q UserDashboardQuery) ActorID() string { return q.Actor }

// UserDashboardHandler counts the actor's listings, swaps, meetings and
// unread notifications. Listing counts stop at the search page size.
type UserDashboardHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *UserDashboardHandler) Handle(ctx context.Context, q UserDashboardQuery) (dto.Dashboard, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Dashboard{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	var out dto.Dashboard
	for _, c := range []struct {
		dst       *int
		direction domainlistings.Direction
	}{{&out.ListingsOffered, domainlistings.Offered}, {&out.ListingsRequested, domainlistings.Requested}} {
		list, err := unit.Listings().Search(ctx, domainlistings.SearchParams{OwnerID: q.Actor, Direction: c.direction, OnlyActive: true})
		if err != nil {
			return dto.Dashboard{}, err
		}
		*c.dst = len(list)
	}

	swaps, err := unit.Swaps().ListByParticipant(ctx, domainswap.ListParams{UserID: q.Actor})
	if err != nil {
		return dto.Dashboard{}, err
	}
	now := h.Clock.Now()
	for _, s := range swaps {
		switch s.Status {
		case domainswap.StatusPending:
			if s.RequesterID == q.Actor {
				out.PendingRequestsSent++
			} else {
				out.PendingRequestsReceived++
			}
			continue
		case domainswap.StatusCompleted:
			out.CompletedSwaps++
		case domainswap.StatusAccepted:
		default:
			continue
		}
		n, err := upcomingMeetings(ctx, unit, s.ID, now)
		if err != nil {
			return dto.Dashboard{}, err
		}
		out.UpcomingMeetings += n
	}

	summary, err := unit.Ratings().SummaryFor(ctx, q.Actor)
	if err != nil {
		return dto.Dashboard{}, err
	}
	out.AverageRating = domainrating.Round1(summary.Average)

	unread, err := unit.Notifications().ListByRecipient(ctx, q.Actor, true)
	if err != nil {
		return dto.Dashboard{}, err
	}
	out.UnreadNotifications = len(unread)
	return out, nil
}

func upcomingMeetings(ctx context.Context, unit uow.UnitOfWork, swapID domainswap.SwapID, now time.Time) (int, error) {
	c, err := unit.Chats().BySwap(ctx, swapID)
	if errors.Is(err, domainchat.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	meetings, err := unit.Meetings().ListByChat(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range meetings {
		if m.Upcoming(now) {
			n++
		}
	}
	return n, nil
}

// PlatformDashboardQuery is the operator view over every aggregate.
type PlatformDashboardQuery struct {
	Actor string
}

func (q PlatformDashboardQuery) Key() string     { return platformDashboardKey }
func (q PlatformDashboardQuery) ActorID() string { return q.Actor }

type PlatformDashboardHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *PlatformDashboardHandler) Handle(ctx context.Context, q PlatformDashboardQuery) (dto.PlatformDashboard, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PlatformDashboard{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	actor, err := unit.Users().ByID(ctx, domainuser.ID(q.Actor))
	if err != nil {
		return dto.PlatformDashboard{}, err
	}
	if !actor.HasRole(domainuser.RoleAdmin) {
		return dto.PlatformDashboard{}, fmt.Errorf("%w: dashboard: admin role required", errs.ErrForbidden)
	}
	totals, err := unit.Totals().Totals(ctx, h.Clock.Now())
	if err != nil {
		return dto.PlatformDashboard{}, err
	}
	return dto.MapPlatformDashboard(totals), nil
}

var _ queries.Handler[UserDashboardQuery, dto.Dashboard] = (*UserDashboardHandler)(nil)
var _ queries.Handler[PlatformDashboardQuery, dto.PlatformDashboard] = (*PlatformDashboardHandler)(nil)
