package data

import "context"

type actorKey struct{}

// SystemActor is stamped on rows written without an actor in the context.
const SystemActor = "system"

// WithActor returns a context carrying the actor reference used for audit columns.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
