package audit

import "context"

// Actor identifies who initiated a request, as asserted by the fronting gateway.
type Actor struct {
	UserID   string
	Username string
}

type actorContextKey struct{}

// WithActor returns a context carrying actor for audit attribution.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFrom extracts the actor stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
