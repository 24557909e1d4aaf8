package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/uow"
	"skillswap/internal/domain/shared/errs"
	domainuser "skillswap/internal/domain/user"
)

const (
	setBanKey        = "users.set_ban"
	updateProfileKey = "users.update_profile"
)

// SetBanCommand bans or unbans UserID. Actor must hold the admin role.
type SetBanCommand struct {
	UserID string
	Actor  string
	Banned bool
}

func (c SetBanCommand) Key() string     { return setBanKey }
func (c SetBanCommand) ActorID() string { return c.Actor }

func (c SetBanCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user: id is required", errs.ErrValidation)
	}
	return nil
}

type SetBanHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *SetBanHandler) Handle(ctx context.Context, cmd SetBanCommand) (*dto.UserProfile, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	actor, err := unit.Users().ByID(ctx, domainuser.ID(cmd.Actor))
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(domainuser.RoleAdmin) {
		return nil, fmt.Errorf("%w: user: admin role required", errs.ErrForbidden)
	}
	if cmd.Banned && cmd.UserID == cmd.Actor {
		return nil, domainuser.ErrSelfBan
	}
	target, err := unit.Users().ByID(ctx, domainuser.ID(cmd.UserID))
	if err != nil {
		return nil, err
	}
	if target.SetBanned(cmd.Banned, h.Clock.Now()) {
		if err := unit.Users().Save(ctx, target); err != nil {
			return nil, err
		}
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Warn("user ban changed", "user_id", target.ID, "banned", target.Banned, "actor_id", cmd.Actor)
	}
	out := dto.MapUserProfile(target)
	return &out, nil
}

// UpdateProfileCommand changes the actor's own email or visibility.
type UpdateProfileCommand struct {
	Actor  string
	Email  *string
	Public *bool
}

func (c UpdateProfileCommand) Key() string     { return updateProfileKey }
func (c UpdateProfileCommand) ActorID() string { return c.Actor }

func (c UpdateProfileCommand) Validate() error {
	if c.Email == nil && c.Public == nil {
		return fmt.Errorf("%w: user: nothing to update", errs.ErrValidation)
	}
	return nil
}

type UpdateProfileHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*dto.UserProfile, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	u, err := unit.Users().ByID(ctx, domainuser.ID(cmd.Actor))
	if err != nil {
		return nil, err
	}
	if err := u.UpdateProfile(domainuser.ProfileChanges{Email: cmd.Email, Public: cmd.Public}, h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Users().Save(ctx, u); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapUserProfile(u)
	return &out, nil
}

var _ commands.Handler[SetBanCommand, *dto.UserProfile] = (*SetBanHandler)(nil)
var _ commands.Handler[UpdateProfileCommand, *dto.UserProfile] = (*UpdateProfileHandler)(nil)
