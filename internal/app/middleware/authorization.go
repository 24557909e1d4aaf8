package middleware

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/queries"
	"skillswap/internal/domain/shared/errs"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Acting is implemented by every message issued on behalf of a user.
type Acting interface {
	ActorID() string
}

// SystemMessage marks messages issued by integrations rather than a user.
type SystemMessage interface {
	SystemTrigger() bool
}

// ActorRequired rejects user messages that carry no actor. Role checks
// happen at the transport edge.
type ActorRequired struct{}

func (ActorRequired) Authorize(_ context.Context, message any) error {
	if sys, ok := message.(SystemMessage); ok && sys.SystemTrigger() {
		return nil
	}
	acting, ok := message.(Acting)
	if !ok {
		return nil
	}
	if strings.TrimSpace(acting.ActorID()) == "" {
		return fmt.Errorf("%w: actor is required", errs.ErrUnauthenticated)
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queries.BusFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
