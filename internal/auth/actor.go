package auth

import (
	"context"

	"eventhub/internal/models"
)

// Actor is the already-authenticated identity every operation receives.
// Credentials are verified upstream; the core only authorizes.
type Actor struct {
	ID        string
	Role      models.Role
	CompanyID string
}

type contextKey string

const actorKey contextKey = "actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the request actor; ok is false when the middleware did
// not run.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
