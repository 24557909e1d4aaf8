package middleware

import (
	"skillswap/internal/app/commands"
	"skillswap/internal/app/queries"
)

// Middleware decorates a bus of type B.
type Middleware[B any] func(next B) B

type (
	CommandMiddleware = Middleware[commands.Bus]
	QueryMiddleware   = Middleware[queries.Bus]
)

// Chain wraps base so that mws[0] runs first on every call.
func Chain[B any](base B, mws ...Middleware[B]) B {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}
