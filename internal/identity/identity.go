package identity

import "context"

// Identity describes the authenticated caller. Every child, event and
// export is scoped to the caller's family.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FamilyID string `json:"family_id"`
}

type contextKey struct{}

// With returns a copy of ctx carrying the identity.
func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Get extracts the identity stored by the auth middleware.
func Get(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
